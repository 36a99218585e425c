package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/db"
)

// SQLStore is the Store for Postgres and SQLite.
type SQLStore struct {
	sqlQueries
	db *sql.DB
}

// NewPostgresStore returns a Store over a pgx-backed db (see db.Open).
func NewPostgresStore(conn *sql.DB) *SQLStore {
	return NewStore(conn, db.DialectPostgres)
}

// NewSQLiteStore returns a Store over a db opened with db.OpenSQLite.
func NewSQLiteStore(conn *sql.DB) *SQLStore {
	return NewStore(conn, db.DialectSQLite)
}

// NewStore returns a Store for the given dialect.
func NewStore(conn *sql.DB, d db.Dialect) *SQLStore {
	return &SQLStore{sqlQueries: sqlQueries{q: conn, d: d}, db: conn}
}

// Open connects to the database selected by d: dsn is the Postgres DSN or the SQLite file path.
// pool only applies to Postgres; SQLite always uses a single connection.
func Open(d db.Dialect, dsn string, pool db.Pool) (*SQLStore, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch d {
	case db.DialectSQLite:
		conn, err = db.OpenSQLite(dsn)
	default:
		if dsn == "" {
			return nil, errors.New("DATABASE_URL is not set")
		}
		conn, err = db.Open(dsn, pool)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(conn, d), nil
}

// DB returns the underlying handle for stores sharing the same database (settings, audit).
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Dialect() db.Dialect { return s.d }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }

// WithinEmployee locks the employee row (Postgres FOR UPDATE; SQLite holds the database write
// lock from BEGIN IMMEDIATE) and runs fn in the same transaction.
func (s *SQLStore) WithinEmployee(ctx context.Context, companyID, employeeID string, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	q := &sqlQueries{q: tx, d: s.d}

	lock := `SELECT id FROM employees WHERE id = ? AND company_id = ?`
	if s.d == db.DialectPostgres {
		lock += ` FOR UPDATE`
	}
	var id string
	if err := q.queryRow(ctx, lock, employeeID, companyID).Scan(&id); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("employee")
		}
		return fmt.Errorf("lock employee: %w", err)
	}

	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("attendance: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
