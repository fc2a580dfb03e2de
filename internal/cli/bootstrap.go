package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/adapters/ledger/driver"
	service "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
)

// env is what every command needs after configuration has been loaded.
type env struct {
	cfg *config.Config
	loc *time.Location
	log logger.Logger
}

// setup loads configuration (defaults -> optional file -> env) and
// initializes the global logger on logOut.
func setup(ctx context.Context, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitWithOptions(cfg.LogFormat, logOut); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, loc: loc, log: log}, nil
}

func (e *env) openLedger(ctx context.Context) (ledger.Ledger, error) {
	l, err := driver.Open(ctx, driver.Config{
		Driver:      e.cfg.LedgerDriver,
		Dir:         e.cfg.LedgerDir,
		SQLitePath:  e.cfg.SQLitePath,
		PostgresDSN: e.cfg.PostgresDSN,
		Location:    e.loc,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", e.cfg.LedgerDriver, err)
	}
	return l, nil
}

func (e *env) newService(l ledger.Ledger) *service.Service {
	return service.New(l,
		service.WithLogger(e.log),
		service.WithThreshold(e.cfg.Threshold),
		service.WithWorkerCount(e.cfg.WorkerCount),
		service.WithQueueSize(e.cfg.QueueSize),
		service.WithDedupeCacheDays(e.cfg.DedupeCacheDays),
		service.WithIOTimeout(e.cfg.IOTimeout()),
		service.WithShutdownTimeout(e.cfg.ShutdownTimeout()),
		service.WithLocation(e.loc),
	)
}

// dateFlag resolves an optional --date value; empty means today in loc.
func dateFlag(raw string, loc *time.Location) (model.DateKey, error) {
	if raw == "" {
		return model.DateOf(time.Now(), loc), nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return "", fmt.Errorf("--date: %w", err)
	}
	return d, nil
}
