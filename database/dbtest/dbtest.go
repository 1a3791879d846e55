// Package dbtest starts throwaway databases for tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/irsalhamdi/chainacademy/config"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

// New opens a private in-memory SQLite database with the schema applied.
func New(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(config.DB{Driver: database.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating sqlite: %v", err)
	}

	return db
}

// NewPostgres runs a postgres container and returns a migrated connection.
// The test is skipped when docker is not reachable.
func NewPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=academy",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pool.Purge(res) })
	_ = res.Expire(120)

	cfg := config.DB{
		Driver:       database.DriverPostgres,
		User:         "postgres",
		Password:     "postgres",
		Host:         fmt.Sprintf("localhost:%s", res.GetPort("5432/tcp")),
		Name:         "academy",
		MaxIdleConns: 2,
		MaxOpenConns: 5,
		DisableTLS:   true,
	}

	var db *sqlx.DB
	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		var err error
		if db, err = database.Open(cfg); err != nil {
			return err
		}
		return db.Ping()
	})
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating postgres: %v", err)
	}

	return db
}
