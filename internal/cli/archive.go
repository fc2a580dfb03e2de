package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/rollcall/internal/adapters/archive"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Upload a day's ledger to S3 as CSV",
		Long: `Upload the ledger of one day to s3://<archive_bucket>/<archive_prefix>attendance_<date>.csv.
Credentials come from the standard AWS chain; archive_endpoint and
archive_path_style target S3-compatible stores such as MinIO.`,
		RunE: runArchive,
	}
	cmd.Flags().String("date", "", "day to archive, YYYY-MM-DD (default: today)")
	cmd.Flags().String("bucket", "", "bucket (overrides archive_bucket from config)")
	return cmd
}

func runArchive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	date, err := dateFlag(mustGetString(cmd, "date"), e.loc)
	if err != nil {
		return err
	}
	bucket := e.cfg.ArchiveBucket
	if b := mustGetString(cmd, "bucket"); b != "" {
		bucket = b
	}
	if bucket == "" {
		return errors.New("no bucket: set archive_bucket or --bucket")
	}

	up, err := archive.New(ctx, archive.Config{
		Bucket:    bucket,
		Region:    e.cfg.ArchiveRegion,
		Endpoint:  e.cfg.ArchiveEndpoint,
		PathStyle: e.cfg.ArchivePathStyle,
	},
		archive.WithPrefix(e.cfg.ArchivePrefix),
		archive.WithLocation(e.loc),
		archive.WithLogger(e.log.Named("archive")),
	)
	if err != nil {
		return err
	}

	l, err := e.openLedger(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	key, err := up.Upload(ctx, l, date)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "archived %s to s3://%s/%s\n", date, bucket, key)
	return nil
}
