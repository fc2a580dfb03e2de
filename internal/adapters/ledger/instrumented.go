package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/metrics"
)

// instrumented records latency and error metrics around a Ledger.
type instrumented struct {
	Ledger
}

// Instrument wraps l with Prometheus latency and error accounting.
func Instrument(l Ledger) Ledger {
	return &instrumented{Ledger: l}
}

func (i *instrumented) Records(ctx context.Context, date model.DateKey) ([]model.AttendanceRecord, error) {
	start := time.Now()
	recs, err := i.Ledger.Records(ctx, date)
	metrics.RecordLedgerReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordLedgerError("read")
	}
	return recs, err
}

func (i *instrumented) Append(ctx context.Context, rec model.AttendanceRecord) error {
	start := time.Now()
	err := i.Ledger.Append(ctx, rec)
	metrics.RecordLedgerAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	switch {
	case err == nil:
		metrics.RecordLedgerRecord()
	case !errors.Is(err, ErrDuplicate):
		metrics.RecordLedgerError("append")
	}
	return err
}
