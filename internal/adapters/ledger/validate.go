package ledger

import (
	"fmt"
	"strings"

	"github.com/okian/rollcall/internal/domain/model"
)

// Validate checks the fields every backend requires.
func Validate(rec model.AttendanceRecord) error {
	switch {
	case strings.TrimSpace(rec.SubjectID) == "":
		return fmt.Errorf("%w: missing subject id", ErrInvalidRecord)
	case !rec.Date.Valid():
		return fmt.Errorf("%w: bad date %q", ErrInvalidRecord, rec.Date)
	case rec.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	return nil
}
