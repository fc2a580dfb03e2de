package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// Header is the v1 CSV ledger header. It matches the files written by the
// first attendance kiosks, so existing ledgers and readers keep working.
var Header = []string{"Name", "ID", "Timestamp"} //nolint:gochecknoglobals // fixed schema

// EncodeCSV writes the header followed by one row per record.
func EncodeCSV(w io.Writer, recs []model.AttendanceRecord, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(row(r, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeRow renders a single complete CSV line, newline included.
func EncodeRow(rec model.AttendanceRecord, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(row(rec, loc)); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func row(r model.AttendanceRecord, loc *time.Location) []string {
	ts := r.Timestamp
	if loc != nil {
		ts = ts.In(loc)
	}
	return []string{r.DisplayName, r.SubjectID, ts.Format(types.TimestampLayout)}
}

// CompleteLines returns the prefix of data made of whole CSV records, each
// ending in a newline. A trailing fragment is an interrupted append and is
// not part of the ledger. Quoted fields may hold newlines, so the cut is
// made at record boundaries rather than at the last newline byte.
func CompleteLines(data []byte) []byte {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var end int64
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		off := cr.InputOffset()
		if err != nil {
			if off == int64(len(data)) && (data[len(data)-1] != '\n' || errors.Is(err, csv.ErrQuote)) {
				// unterminated last record
				break
			}
			// damage before the tail is left for the decoder to report
			return data[:lastNewline(data)]
		}
		if off > 0 && data[off-1] == '\n' {
			end = off
		}
	}
	return data[:end]
}

func lastNewline(data []byte) int {
	return bytes.LastIndexByte(data, '\n') + 1
}

// DecodeCSV parses a v1 ledger for date. Timestamps are read in loc.
// Empty input (no header yet) yields no records.
func DecodeCSV(data []byte, date model.DateKey, loc *time.Location) ([]model.AttendanceRecord, error) {
	data = CompleteLines(data)
	if len(data) == 0 {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = len(Header)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if len(rows) == 0 || !slices.Equal(rows[0], Header) {
		return nil, fmt.Errorf("%w: unexpected header", ErrCorrupt)
	}

	recs := make([]model.AttendanceRecord, 0, len(rows)-1)
	for i, r := range rows[1:] {
		ts, err := time.ParseInLocation(types.TimestampLayout, r[2], loc)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrCorrupt, i+1, err)
		}
		recs = append(recs, model.AttendanceRecord{
			DisplayName: r[0],
			SubjectID:   r[1],
			Timestamp:   ts,
			Date:        date,
		})
	}
	return recs, nil
}
