package simulate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

const maxLineBytes = 64 * 1024

// Line is one event in a JSON-lines stream. It has the same shape as the
// body of POST /events, label included.
type Line struct {
	SubjectID   string  `json:"subject_id,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	Label       string  `json:"label,omitempty"`
	TS          string  `json:"ts,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// ToLine renders ev for a stream.
func ToLine(ev model.IdentityEvent) Line {
	l := Line{SubjectID: ev.SubjectID, DisplayName: ev.DisplayName, Confidence: ev.Confidence}
	if !ev.Timestamp.IsZero() {
		l.TS = ev.Timestamp.Format(time.RFC3339Nano)
	}
	return l
}

// Event converts l back to an IdentityEvent.
func (l Line) Event() (model.IdentityEvent, error) {
	if strings.TrimSpace(l.Label) != "" {
		name, id := model.ParseEnrollmentName(l.Label)
		if strings.TrimSpace(l.SubjectID) == "" {
			l.SubjectID = id
		}
		if l.DisplayName == "" {
			l.DisplayName = name
		}
	}
	if strings.TrimSpace(l.SubjectID) == "" {
		return model.IdentityEvent{}, fmt.Errorf("%w: missing subject_id", ErrBadLine)
	}
	ev := model.IdentityEvent{SubjectID: l.SubjectID, DisplayName: l.DisplayName, Confidence: l.Confidence}
	if ev.DisplayName == "" {
		ev.DisplayName = ev.SubjectID
	}
	if l.TS != "" {
		ts, err := time.Parse(time.RFC3339Nano, l.TS)
		if err != nil {
			return model.IdentityEvent{}, fmt.Errorf("%w: ts: %w", ErrBadLine, err)
		}
		ev.Timestamp = ts
	}
	return ev, nil
}

// ReadJSONL decodes one event per line. Blank lines and lines starting with
// '#' are skipped; the first bad line aborts with its line number.
func ReadJSONL(r io.Reader) ([]model.IdentityEvent, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	var evs []model.IdentityEvent
	for n := 1; sc.Scan(); n++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var l Line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", n, ErrBadLine, err)
		}
		ev, err := l.Event()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		evs = append(evs, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return evs, nil
}

// WriteJSONL encodes evs one per line.
func WriteJSONL(w io.Writer, evs []model.IdentityEvent) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, ev := range evs {
		if err := enc.Encode(ToLine(ev)); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
	return bw.Flush()
}
