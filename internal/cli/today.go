package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/types"
)

func newTodayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the attendance ledger for a day",
		RunE:  runToday,
	}
	cmd.Flags().String("date", "", "day to show, YYYY-MM-DD (default: today)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	cmd.Flags().Bool("list", false, "list the dates that have a ledger instead")
	return cmd
}

func runToday(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	date, err := dateFlag(mustGetString(cmd, "date"), e.loc)
	if err != nil {
		return err
	}
	l, err := e.openLedger(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	if mustGetBool(cmd, "list") {
		return listDates(cmd, l)
	}

	recs, err := l.Records(ctx, date)
	if err != nil {
		return fmt.Errorf("read %s: %w", date, err)
	}
	rows := types.FromRecords(recs)
	out := cmd.OutOrStdout()

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Date    string                  `json:"date"`
			Count   int                     `json:"count"`
			Records []types.AttendanceEntry `json:"records"`
		}{Date: date.String(), Count: len(rows), Records: rows})
	}

	if len(rows) == 0 {
		fmt.Fprintf(out, "no attendance recorded for %s\n", date)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tTIMESTAMP")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.ID, r.Timestamp)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d present on %s\n", len(rows), date)
	return nil
}

func listDates(cmd *cobra.Command, l ledger.Ledger) error {
	dates, err := l.Dates(cmd.Context())
	if err != nil {
		return fmt.Errorf("list dates: %w", err)
	}
	out := cmd.OutOrStdout()
	if mustGetBool(cmd, "json") {
		names := make([]string, 0, len(dates))
		for _, d := range dates {
			names = append(names, d.String())
		}
		return json.NewEncoder(out).Encode(struct {
			Dates []string `json:"dates"`
		}{Dates: names})
	}
	if len(dates) == 0 {
		fmt.Fprintln(out, "no ledgers yet")
		return nil
	}
	for _, d := range dates {
		fmt.Fprintln(out, d)
	}
	return nil
}
