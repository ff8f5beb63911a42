// Package store persists users, tenants, audit events and sessions in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jrsteele09/go-tenant-admin/audit"
	"github.com/jrsteele09/go-tenant-admin/sessions"
	"github.com/jrsteele09/go-tenant-admin/tenants"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// SQLiteStore owns the database handle shared by all repositories
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewSQLiteStore] open %s", dbPath)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "[NewSQLiteStore] %s", pragma)
		}
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. It is safe to run on every start.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug().Msg("Running migrations")
	if err := migrate(ctx, s.db); err != nil {
		return errors.Wrap(err, "[SQLiteStore Migrate]")
	}
	return nil
}

func (s *SQLiteStore) Users() users.Repo {
	return &userRepo{db: s.db, logger: s.logger}
}

func (s *SQLiteStore) Tenants() tenants.Repo {
	return &tenantRepo{db: s.db, logger: s.logger}
}

func (s *SQLiteStore) Audit() audit.Repo {
	return &auditRepo{db: s.db, logger: s.logger}
}

func (s *SQLiteStore) Sessions() sessions.Repo {
	return &sessionRepo{db: s.db, logger: s.logger}
}

// Ping checks the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// whereClause joins conditions with AND
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Timestamps are stored as UTC unix nanoseconds so range filters compare
// numerically.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
