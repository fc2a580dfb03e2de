package dedupe

// Option applies a configuration option to the Store.
type Option func(*Store)

// DefaultMaxDays is how many dates the cache keeps by default.
const DefaultMaxDays = 7

// WithMaxDays bounds the number of cached dates. When full, the least
// recently loaded date is evicted. Values below 1 are ignored.
func WithMaxDays(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxDays = n
		}
	}
}
