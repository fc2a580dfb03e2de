package archive

import (
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// Option configures an Uploader.
type Option func(*Uploader)

// WithPrefix sets the object key prefix, e.g. "attendance/".
func WithPrefix(prefix string) Option {
	return func(u *Uploader) {
		u.prefix = prefix
	}
}

// WithLocation sets the zone ledger timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(u *Uploader) {
		if loc != nil {
			u.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.log = l
		}
	}
}
