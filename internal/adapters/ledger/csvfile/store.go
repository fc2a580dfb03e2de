// Package csvfile stores each day's ledger as a CSV file.
//
// Files are named attendance_YYYY-MM-DD.csv and start with the v1 header.
// A file is created atomically on the first append for its date; every
// append writes one complete line and is fsynced before returning.
package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/datelock"
	"github.com/okian/rollcall/internal/domain/model"
)

const (
	filePrefix    = "attendance_"
	fileSuffix    = ".csv"
	dirPermission = 0o750
	filePerm      = 0o640
)

// Store is a directory of per-date CSV ledgers.
type Store struct {
	dir string
	loc *time.Location

	locks *datelock.Locks
}

var _ ledger.Ledger = (*Store)(nil)

// New opens (and creates if needed) a ledger directory.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv ledger: empty directory")
	}
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return nil, fmt.Errorf("csv ledger: create dir: %w", err)
	}
	s := &Store{
		dir:   dir,
		loc:   time.Local,
		locks: datelock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the file backing date.
func (s *Store) Path(date model.DateKey) string {
	return filepath.Join(s.dir, filePrefix+string(date)+fileSuffix)
}

// Records reads the ledger for date. A missing file is an empty ledger.
func (s *Store) Records(ctx context.Context, date model.DateKey) ([]model.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	data, err := os.ReadFile(s.Path(date))
	if errors.Is(err, os.ErrNotExist) {
		return []model.AttendanceRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	recs, err := ledger.DecodeCSV(data, date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ledger.ErrReadFailed, s.Path(date), err)
	}
	return recs, nil
}

// Append adds rec to its date's file. Appends for one date are serialized;
// under that lock the file is re-read so a subject written by another
// process is refused with ErrDuplicate.
func (s *Store) Append(ctx context.Context, rec model.AttendanceRecord) error {
	if err := ledger.Validate(rec); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}

	unlock := s.locks.Lock(rec.Date)
	defer unlock()

	path := s.Path(rec.Date)
	if err := s.ensureFile(path); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR, filePerm)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	complete := ledger.CompleteLines(data)
	existing, err := ledger.DecodeCSV(complete, rec.Date, s.loc)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	for _, r := range existing {
		if r.SubjectID == rec.SubjectID {
			return ledger.ErrDuplicate
		}
	}

	// Drop the fragment of an interrupted append before writing.
	if len(complete) != len(data) {
		if err := f.Truncate(int64(len(complete))); err != nil {
			return fmt.Errorf("%w: repair tail: %w", ledger.ErrWriteFailed, err)
		}
	}

	var line []byte
	if len(complete) == 0 {
		// header lost with the fragment; rewrite it
		var buf bytes.Buffer
		err = ledger.EncodeCSV(&buf, []model.AttendanceRecord{rec}, s.loc)
		line = buf.Bytes()
	} else {
		line, err = ledger.EncodeRow(rec, s.loc)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	if _, err := f.WriteAt(line, int64(len(complete))); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ledger.ErrWriteFailed, err)
	}
	return nil
}

// ensureFile creates path with the header if it does not exist. The header
// is written to a temp file and linked into place, so readers never see a
// half-written header and a concurrent creator cannot clobber it.
func (s *Store) ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".attendance-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := ledger.EncodeCSV(tmp, nil, s.loc); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return err
	}
	if err := os.Link(tmpName, path); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return syncDir(s.dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}

// Dates lists dates with a ledger file, ascending.
func (s *Store) Dates(ctx context.Context) ([]model.DateKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	var dates []model.DateKey
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		d := model.DateKey(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if d.Valid() {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error { return nil }
