// Package sqlite keeps every day's ledger in one SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `CREATE TABLE IF NOT EXISTS attendance (
	date         TEXT NOT NULL,
	subject_id   TEXT NOT NULL,
	display_name TEXT NOT NULL,
	ts           TEXT NOT NULL,
	PRIMARY KEY (date, subject_id)
)`

// Store is a SQLite backed ledger. The primary key on (date, subject_id)
// is what makes a second write for a subject a no-op.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

var _ ledger.Ledger = (*Store)(nil)

// Open opens or creates the database at path.
func Open(ctx context.Context, path string, loc *time.Location) (*Store, error) {
	if path == "" {
		path = "rollcall.db"
	}
	if loc == nil {
		loc = time.Local
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; sqlite serializes anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create attendance table: %w", err)
	}
	return &Store{db: db, loc: loc}, nil
}

// Records returns the date's rows in insertion order.
func (s *Store) Records(ctx context.Context, date model.DateKey) ([]model.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT display_name, subject_id, ts FROM attendance WHERE date = ? ORDER BY rowid`, string(date))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.AttendanceRecord{}
	for rows.Next() {
		var name, id, ts string
		if err := rows.Scan(&name, &id, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ledger.ErrReadFailed, err)
		}
		at, err := time.ParseInLocation(types.TimestampLayout, ts, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: bad timestamp %q", ledger.ErrReadFailed, ledger.ErrCorrupt, ts)
		}
		out = append(out, model.AttendanceRecord{DisplayName: name, SubjectID: id, Timestamp: at, Date: date})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	return out, nil
}

// Append inserts rec, returning ErrDuplicate when the subject already has a row.
func (s *Store) Append(ctx context.Context, rec model.AttendanceRecord) error {
	if err := ledger.Validate(rec); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (date, subject_id, display_name, ts) VALUES (?, ?, ?, ?)
		 ON CONFLICT (date, subject_id) DO NOTHING`,
		string(rec.Date), rec.SubjectID, rec.DisplayName, rec.Timestamp.In(s.loc).Format(types.TimestampLayout))
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	if n == 0 {
		return ledger.ErrDuplicate
	}
	return nil
}

// Dates lists dates with at least one row.
func (s *Store) Dates(ctx context.Context) ([]model.DateKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM attendance ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()
	var dates []model.DateKey
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
		}
		dates = append(dates, model.DateKey(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	return dates, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
