package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/rollcall/internal/adapters/http/api"
	"github.com/okian/rollcall/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	serverStopTimeout = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the attendance HTTP API. Recognizers post sightings to /events while a
session is active; the presentation layer reads /attendance.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides addr from config)")
	cmd.Flags().Bool("session", false, "start a recognition session immediately")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Go and process collectors live on the default registry; /metrics serves
	// the custom one, so drop them to avoid paying for unused collection.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, os.Stdout)
	if err != nil {
		return err
	}
	if addr := mustGetString(cmd, "addr"); addr != "" {
		e.cfg.Addr = addr
	}
	log := e.log

	l, err := e.openLedger(ctx)
	if err != nil {
		return err
	}
	svc := e.newService(l)
	if err := svc.Start(ctx); err != nil {
		_ = l.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ShutdownTimeout()+time.Second)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	if mustGetBool(cmd, "session") {
		info, err := svc.StartSession(ctx)
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		log.Info(ctx, "session started at boot", logger.String("session_id", info.ID))
	}

	srv := &http.Server{
		Addr:              e.cfg.Addr,
		Handler:           api.NewServer(svc, svc).Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", e.cfg.Addr),
			logger.String("ledger_driver", e.cfg.LedgerDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverStopTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}
