package tracker

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithThreshold sets the confirmation threshold. Values below 1 are ignored.
func WithThreshold(k int) Option {
	return func(t *Tracker) {
		if k >= 1 {
			t.threshold = k
		}
	}
}
