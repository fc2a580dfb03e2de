package csvfile

import "time"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLocation sets the zone timestamps are written and read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}
