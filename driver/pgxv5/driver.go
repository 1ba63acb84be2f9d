// Package pgxv5 provides a pgx/v5 driver implementation for pgexec.
//
// This is the primary/recommended driver, offering native PostgreSQL type
// decoding, named parameters and accurate affected-row counts for
// RETURNING statements.
//
// Parameters are bound with pgx.NamedArgs, so queries reference them as
// @name:
//
//	exec := pgexec.New(pgxv5.New())
//	res, err := exec.Execute(ctx, pgexec.Input{
//	    Query:      "SELECT * FROM users WHERE id = @id",
//	    Parameters: []pgexec.Parameter{{Name: "id", Value: pgexec.Int(1)}},
//	    ConnectionString: connString,
//	}, pgexec.DefaultOptions())
package pgxv5

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/youssefsiam38/pgexec/driver"
)

// Driver implements driver.Driver for pgx/v5.
type Driver struct {
	configure []func(*pgx.ConnConfig)
}

// Option configures a Driver.
type Option func(*Driver)

// WithConnConfig registers a hook that adjusts every parsed connection
// config before connecting, e.g. to set a pgx.QueryTracer.
func WithConnConfig(fn func(*pgx.ConnConfig)) Option {
	return func(d *Driver) {
		d.configure = append(d.configure, fn)
	}
}

// New creates a new pgx/v5 driver.
func New(opts ...Option) *Driver {
	d := &Driver{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns "pgx".
func (d *Driver) Name() string {
	return "pgx"
}

// SupportsSnapshot returns false; PostgreSQL has no snapshot level.
func (d *Driver) SupportsSnapshot() bool {
	return false
}

// Open connects a dedicated pgx.Conn.
func (d *Driver) Open(ctx context.Context, connString string) (driver.Conn, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	for _, fn := range d.configure {
		fn(cfg)
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: conn}, nil
}

// Conn wraps a pgx.Conn.
type Conn struct {
	conn *pgx.Conn
}

// Exec executes a query that doesn't return rows.
func (c *Conn) Exec(ctx context.Context, sql string, args ...driver.NamedArg) (int64, error) {
	result, err := c.conn.Exec(ctx, sql, bindArgs(args)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows.
func (c *Conn) Query(ctx context.Context, sql string, args ...driver.NamedArg) (driver.Rows, error) {
	rows, err := c.conn.Query(ctx, sql, bindArgs(args)...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

// BeginTx starts a transaction at the requested isolation level.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.ExecutorTx, error) {
	level, err := isoLevel(opts.IsoLevel)
	if err != nil {
		return nil, err
	}

	tx, err := c.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: level})
	if err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: tx}, nil
}

// Close closes the connection.
func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// PgConn returns the underlying pgx.Conn for advanced usage.
func (c *Conn) PgConn() *pgx.Conn {
	return c.conn
}

// ExecutorTx wraps pgx.Tx for transactional operations.
type ExecutorTx struct {
	tx pgx.Tx
}

// Exec executes a query that doesn't return rows within the transaction.
func (e *ExecutorTx) Exec(ctx context.Context, sql string, args ...driver.NamedArg) (int64, error) {
	result, err := e.tx.Exec(ctx, sql, bindArgs(args)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows within the transaction.
func (e *ExecutorTx) Query(ctx context.Context, sql string, args ...driver.NamedArg) (driver.Rows, error) {
	rows, err := e.tx.Query(ctx, sql, bindArgs(args)...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

// Commit commits the transaction.
func (e *ExecutorTx) Commit(ctx context.Context) error {
	return e.tx.Commit(ctx)
}

// Rollback rolls back the transaction.
func (e *ExecutorTx) Rollback(ctx context.Context) error {
	return e.tx.Rollback(ctx)
}

// Tx returns the underlying pgx.Tx for advanced usage.
func (e *ExecutorTx) Tx() pgx.Tx {
	return e.tx
}

// bindArgs turns named arguments into a single pgx.NamedArgs so queries
// can reference them as @name. A leading @ or : on the name is ignored.
func bindArgs(args []driver.NamedArg) []any {
	if len(args) == 0 {
		return nil
	}
	named := make(pgx.NamedArgs, len(args))
	for _, a := range args {
		named[strings.TrimLeft(a.Name, "@:")] = a.Value
	}
	return []any{named}
}

func isoLevel(level driver.IsoLevel) (pgx.TxIsoLevel, error) {
	switch level {
	case driver.IsoLevelUnspecified:
		return "", nil
	case driver.IsoLevelReadUncommitted:
		return pgx.ReadUncommitted, nil
	case driver.IsoLevelReadCommitted:
		return pgx.ReadCommitted, nil
	case driver.IsoLevelRepeatableRead:
		return pgx.RepeatableRead, nil
	case driver.IsoLevelSerializable:
		return pgx.Serializable, nil
	default:
		return "", fmt.Errorf("pgxv5: isolation level %s not supported", level)
	}
}

// Compile-time check
var _ driver.Driver = (*Driver)(nil)
