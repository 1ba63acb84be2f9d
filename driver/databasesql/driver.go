// Package databasesql provides a database/sql driver implementation for pgexec.
//
// Connections are opened through lib/pq wrapped with otelsql, so every
// statement shows up as a span under the caller's trace.
//
// lib/pq only understands positional placeholders. Parameters are bound in
// declaration order and referenced as $1, $2, ... from the query; their
// names are ignored.
package databasesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/youssefsiam38/pgexec/driver"
)

// Opener returns a *sql.DB for dsn.
type Opener func(dsn string) (*sql.DB, error)

// Driver implements driver.Driver using database/sql.
type Driver struct {
	open Opener
}

// Option configures a Driver.
type Option func(*Driver)

// WithOpener replaces the default lib/pq opener. Tests use it to inject
// sqlmock.
func WithOpener(open Opener) Option {
	return func(d *Driver) {
		d.open = open
	}
}

// New creates a new database/sql driver.
func New(opts ...Option) *Driver {
	d := &Driver{open: openPostgres}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func openPostgres(dsn string) (*sql.DB, error) {
	return otelsql.Open("postgres", dsn,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
	)
}

// Name returns "database/sql".
func (d *Driver) Name() string {
	return "database/sql"
}

// SupportsSnapshot returns false; PostgreSQL has no snapshot level.
func (d *Driver) SupportsSnapshot() bool {
	return false
}

// Open creates a single-connection *sql.DB and pins one connection from it.
func (d *Driver) Open(ctx context.Context, connString string) (driver.Conn, error) {
	db, err := d.open(connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Conn{db: db, conn: conn}, nil
}

// Conn wraps a pinned *sql.Conn together with its owning *sql.DB.
type Conn struct {
	db   *sql.DB
	conn *sql.Conn
}

// Exec executes a query that doesn't return rows.
func (c *Conn) Exec(ctx context.Context, query string, args ...driver.NamedArg) (int64, error) {
	result, err := c.conn.ExecContext(ctx, query, positional(args)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query executes a query that returns rows.
func (c *Conn) Query(ctx context.Context, query string, args ...driver.NamedArg) (driver.Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query, positional(args)...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows: rows}, nil
}

// BeginTx starts a transaction at the requested isolation level.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.ExecutorTx, error) {
	level, err := isoLevel(opts.IsoLevel)
	if err != nil {
		return nil, err
	}

	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: tx}, nil
}

// Close releases the connection and closes the *sql.DB.
func (c *Conn) Close(_ context.Context) error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

// DB returns the underlying *sql.DB for advanced usage.
func (c *Conn) DB() *sql.DB {
	return c.db
}

// ExecutorTx wraps *sql.Tx for transactional operations.
type ExecutorTx struct {
	tx *sql.Tx
}

// Exec executes a query that doesn't return rows within the transaction.
func (e *ExecutorTx) Exec(ctx context.Context, query string, args ...driver.NamedArg) (int64, error) {
	result, err := e.tx.ExecContext(ctx, query, positional(args)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query executes a query that returns rows within the transaction.
func (e *ExecutorTx) Query(ctx context.Context, query string, args ...driver.NamedArg) (driver.Rows, error) {
	rows, err := e.tx.QueryContext(ctx, query, positional(args)...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows: rows}, nil
}

// Commit commits the transaction.
func (e *ExecutorTx) Commit(_ context.Context) error {
	return e.tx.Commit()
}

// Rollback rolls back the transaction.
func (e *ExecutorTx) Rollback(_ context.Context) error {
	return e.tx.Rollback()
}

// Tx returns the underlying *sql.Tx for advanced usage.
func (e *ExecutorTx) Tx() *sql.Tx {
	return e.tx
}

func positional(args []driver.NamedArg) []any {
	if len(args) == 0 {
		return nil
	}
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	return values
}

func isoLevel(level driver.IsoLevel) (sql.IsolationLevel, error) {
	switch level {
	case driver.IsoLevelUnspecified:
		return sql.LevelDefault, nil
	case driver.IsoLevelReadUncommitted:
		return sql.LevelReadUncommitted, nil
	case driver.IsoLevelReadCommitted:
		return sql.LevelReadCommitted, nil
	case driver.IsoLevelRepeatableRead:
		return sql.LevelRepeatableRead, nil
	case driver.IsoLevelSerializable:
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("databasesql: isolation level %s not supported", level)
	}
}

// Compile-time check
var _ driver.Driver = (*Driver)(nil)
