// Package database provides support for access to the relational store. The
// same queries run on SQLite (development, tests) and PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/irsalhamdi/chainacademy/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	ErrDBNotFound        = errors.New("not found")
	ErrDBDuplicatedEntry = errors.New("duplicated entry")
)

const uniqueViolation = "23505"

func Open(cfg config.DB) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		sslMode := "require"
		if cfg.DisableTLS {
			sslMode = "disable"
		}

		q := make(url.Values)
		q.Set("sslmode", sslMode)
		q.Set("timezone", "utc")

		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     cfg.Host,
			Path:     cfg.Name,
			RawQuery: q.Encode(),
		}

		db, err := sqlx.Open(DriverPostgres, u.String())
		if err != nil {
			return nil, err
		}
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		return db, nil

	case DriverSQLite:
		q := make(url.Values)
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", "5000")

		dsn := fmt.Sprintf("file:%s?%s", cfg.Path, q.Encode())
		db, err := sqlx.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}

		// One connection keeps ":memory:" databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	const q = `SELECT 1`
	var tmp int
	return db.QueryRowContext(ctx, q).Scan(&tmp)
}

func Transaction(db *sqlx.DB, fn func(sqlx.ExtContext) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("rollback transaction: %v: %w", rerr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func Get(ctx context.Context, db sqlx.ExtContext, dest any, query string, args ...any) error {
	if err := sqlx.GetContext(ctx, db, dest, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDBNotFound
		}
		return err
	}
	return nil
}

func Select(ctx context.Context, db sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, db, dest, db.Rebind(query), args...)
}

// In expands slice arguments of an IN clause before running Select.
func In(ctx context.Context, db sqlx.ExtContext, dest any, query string, args ...any) error {
	q, qargs, err := sqlx.In(query, args...)
	if err != nil {
		return fmt.Errorf("expanding IN query: %w", err)
	}
	return Select(ctx, db, dest, q, qargs...)
}

// Exec runs a statement and returns the number of affected rows.
func Exec(ctx context.Context, db sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func NamedExec(ctx context.Context, db sqlx.ExtContext, query string, data any) error {
	if _, err := sqlx.NamedExecContext(ctx, db, query, data); err != nil {
		return mapError(err)
	}
	return nil
}

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %v", ErrDBDuplicatedEntry, err)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrDBDuplicatedEntry, err)
		}
	}

	return err
}

// Nullable maps an empty string to a SQL NULL.
func Nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
