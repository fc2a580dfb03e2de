package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/simulate"
	"github.com/okian/rollcall/pkg/logger"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed a recorded or synthetic sighting stream through a session",
		Long: `Replay a JSON-lines stream of sightings (one POST /events body per line)
through a fresh in-process session, or post it to a running server with --target.
With --synthetic N a random interleaved stream for N subjects is generated instead.`,
		Example: `  rollcall replay --file door-cam.jsonl
  rollcall replay --synthetic 30 --noise 100 --write stream.jsonl
  rollcall replay --file door-cam.jsonl --target http://localhost:9080`,
		RunE: runReplay,
	}
	cmd.Flags().String("file", "", `JSON-lines stream to replay ("-" for stdin)`)
	cmd.Flags().Int("synthetic", 0, "generate a stream for this many subjects")
	cmd.Flags().Int("per-subject", 0, "sightings per synthetic subject (default: the threshold)")
	cmd.Flags().Int("noise", 0, "one-off synthetic sightings of passers-by")
	cmd.Flags().String("write", "", "also save the stream to this file")
	cmd.Flags().String("target", "", "base URL of a running server; replays over HTTP")
	cmd.Flags().Bool("pace", false, "replay at the speed implied by event timestamps")
	return cmd
}

func runReplay(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	evs, err := loadStream(cmd, e)
	if err != nil {
		return err
	}
	if path := mustGetString(cmd, "write"); path != "" {
		if err := writeStream(path, evs); err != nil {
			return err
		}
	}

	opts := []simulate.ReplayOption{
		simulate.WithPacing(mustGetBool(cmd, "pace")),
		simulate.WithReplayLogger(e.log.Named("replay")),
	}
	out := cmd.OutOrStdout()

	if target := mustGetString(cmd, "target"); target != "" {
		rep, err := simulate.NewReplayer(opts...).Replay(ctx, simulate.NewHTTPSink(target, 0), evs)
		fmt.Fprintf(out, "posted %d/%d events to %s (%d retries)\n", rep.Submitted, len(evs), target, rep.Retries)
		return err
	}

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
		if err := svc.Stop(context.WithoutCancel(ctx)); err != nil {
			e.log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()
	if _, err := svc.StartSession(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	opts = append(opts, simulate.WithRetryIf(func(err error) bool { return errors.Is(err, service.ErrBackpressure) }))
	rep, replayErr := simulate.NewReplayer(opts...).Replay(ctx, svc, evs)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ShutdownTimeout()+time.Second)
	defer cancel()
	info, stopErr := svc.StopSession(stopCtx)

	fmt.Fprintf(out, "session %s: replayed %d/%d events (%d retries)\n", info.ID, rep.Submitted, len(evs), rep.Retries)
	kinds := make([]string, 0, len(info.Outcomes))
	for k := range info.Outcomes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-16s %d\n", k, info.Outcomes[k])
	}
	return errors.Join(replayErr, stopErr)
}

func loadStream(cmd *cobra.Command, e *env) ([]model.IdentityEvent, error) {
	file := mustGetString(cmd, "file")
	subjects := mustGetInt(cmd, "synthetic")
	switch {
	case file != "" && subjects > 0:
		return nil, errors.New("--file and --synthetic are mutually exclusive")
	case file == "" && subjects <= 0:
		return nil, errors.New("one of --file or --synthetic is required")
	case subjects > 0:
		per := mustGetInt(cmd, "per-subject")
		if per <= 0 {
			per = e.cfg.Threshold
		}
		return simulate.Generate(cmd.Context(), simulate.Config{
			Subjects:            subjects,
			SightingsPerSubject: per,
			Noise:               mustGetInt(cmd, "noise"),
		})
	}

	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("open stream: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return simulate.ReadJSONL(r)
}

func writeStream(path string, evs []model.IdentityEvent) error {
	f, err := os.Create(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := simulate.WriteJSONL(f, evs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
