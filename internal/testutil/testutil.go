// Package testutil provides test utilities for pgexec
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB wraps a PostgreSQL connection pool for testing
type TestDB struct {
	Pool *pgxpool.Pool
	URL  string
}

// URL returns DATABASE_URL or skips the test when it is not set.
func URL(t *testing.T) string {
	t.Helper()
	RequireIntegration(t)
	return os.Getenv("DATABASE_URL")
}

// NewTestDB creates a test database connection from DATABASE_URL env var
// Skips the test if DATABASE_URL is not set (for unit tests)
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := URL(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	db := &TestDB{Pool: pool, URL: dbURL}
	t.Cleanup(db.Close)
	return db
}

// Close closes the database connection
func (db *TestDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// CreateTable creates a fresh table named name with an integer id and a
// text selite column, seeded with:
//
//	(1, 'Ensimmäinen'), (2, 'Toinen'), (3, ''), (4, NULL)
//
// The table is dropped when the test ends.
func (db *TestDB) CreateTable(ctx context.Context, t *testing.T, name string) {
	t.Helper()

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", name),
		fmt.Sprintf("CREATE TABLE %s (id int, selite text)", name),
		fmt.Sprintf("INSERT INTO %s (id, selite) VALUES (1, 'Ensimmäinen'), (2, 'Toinen'), (3, ''), (4, NULL)", name),
	}
	for _, stmt := range stmts {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to prepare %s: %v", name, err)
		}
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = db.Pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", name))
	})
}

// Count returns the number of rows in table matching where.
func (db *TestDB) Count(ctx context.Context, t *testing.T, table, where string) int {
	t.Helper()

	query := fmt.Sprintf("SELECT count(*) FROM %s", table)
	if where != "" {
		query += " WHERE " + where
	}

	var n int
	if err := db.Pool.QueryRow(ctx, query).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// RequireIntegration skips the test if not running integration tests
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
}
