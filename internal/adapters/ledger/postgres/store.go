// Package postgres provides a Postgres backed ledger for deployments where
// several kiosks share one attendance register.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/model"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

//go:embed schema.sql
var schemaDDL string

const (
	driverName  = "pgx"
	defaultDSN  = "postgres://localhost/rollcall?sslmode=disable"
	pingTimeout = 10 * time.Second
)

// Store is a Postgres backed ledger.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

var _ ledger.Ledger = (*Store)(nil)

// Open connects to dsn (defaultDSN when empty), pings, and applies the schema.
func Open(ctx context.Context, dsn string, loc *time.Location) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if loc == nil {
		loc = time.Local
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, loc: loc}, nil
}

// DB exposes the pool for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// Records returns the date's rows in insertion order.
func (s *Store) Records(ctx context.Context, date model.DateKey) ([]model.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT display_name, subject_id, ts FROM attendance WHERE date = $1 ORDER BY id`, string(date))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.AttendanceRecord{}
	for rows.Next() {
		var r model.AttendanceRecord
		if err := rows.Scan(&r.DisplayName, &r.SubjectID, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ledger.ErrReadFailed, err)
		}
		r.Timestamp = r.Timestamp.In(s.loc)
		r.Date = date
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	return out, nil
}

// Append inserts rec. The unique (date, subject_id) constraint turns a
// concurrent second write into ErrDuplicate instead of a second row.
func (s *Store) Append(ctx context.Context, rec model.AttendanceRecord) error {
	if err := ledger.Validate(rec); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (date, subject_id, display_name, ts) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (date, subject_id) DO NOTHING`,
		string(rec.Date), rec.SubjectID, rec.DisplayName, rec.Timestamp)
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
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT to_char(date, 'YYYY-MM-DD') AS d FROM attendance ORDER BY d`)
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

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }
