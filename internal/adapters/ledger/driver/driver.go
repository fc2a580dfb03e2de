// Package driver opens a ledger backend by name.
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/adapters/ledger/csvfile"
	"github.com/okian/rollcall/internal/adapters/ledger/memory"
	"github.com/okian/rollcall/internal/adapters/ledger/postgres"
	"github.com/okian/rollcall/internal/adapters/ledger/sqlite"
)

// Driver names.
const (
	CSV      = "csv"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Memory   = "memory"
)

// Config selects and parameterizes a backend.
type Config struct {
	Driver      string
	Dir         string
	SQLitePath  string
	PostgresDSN string
	Location    *time.Location
}

// Open returns the configured backend wrapped with metrics. An empty driver
// name means CSV.
func Open(ctx context.Context, cfg Config) (ledger.Ledger, error) {
	var (
		l   ledger.Ledger
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", CSV:
		var opts []csvfile.Option
		if cfg.Location != nil {
			opts = append(opts, csvfile.WithLocation(cfg.Location))
		}
		l, err = csvfile.New(cfg.Dir, opts...)
	case SQLite:
		l, err = sqlite.Open(ctx, cfg.SQLitePath, cfg.Location)
	case Postgres:
		l, err = postgres.Open(ctx, cfg.PostgresDSN, cfg.Location)
	case Memory:
		l = memory.New()
	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return ledger.Instrument(l), nil
}
