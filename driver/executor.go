package driver

import "context"

// NamedArg is a query argument carrying the caller supplied parameter name.
// Drivers bind it using their native placeholder syntax: by name where the
// driver supports named placeholders, by position otherwise.
// A nil Value binds SQL NULL.
type NamedArg struct {
	Name  string
	Value any
}

// Rows represents a result set from a query.
// This interface is satisfied by thin adapters over pgx.Rows and *sql.Rows.
type Rows interface {
	// Close closes the Rows, preventing further enumeration.
	Close()

	// Err returns the error, if any, that was encountered during iteration.
	Err() error

	// Next prepares the next result row for reading with the Values method.
	// Returns true if there is another row, false otherwise.
	Next() bool

	// Columns returns the column names in result order, case preserved.
	Columns() []string

	// Values returns the current row decoded into plain Go values.
	// SQL NULL is returned as nil.
	Values() ([]any, error)

	// RowsAffected reports the number of rows the statement affected, or -1
	// when the statement is a plain read or the driver cannot tell.
	// Only meaningful after Close.
	RowsAffected() int64
}

// Executor runs statements.
// It can represent either a bare connection or a transaction.
type Executor interface {
	// Exec executes a query that doesn't return rows.
	// Returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...NamedArg) (int64, error)

	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...NamedArg) (Rows, error)
}

// ExecutorTx is an Executor that supports commit/rollback.
// It represents an active database transaction.
type ExecutorTx interface {
	Executor

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction.
	Rollback(ctx context.Context) error
}

// Conn is a single dedicated database connection.
type Conn interface {
	Executor

	// BeginTx starts a new transaction at the requested isolation level.
	BeginTx(ctx context.Context, opts TxOptions) (ExecutorTx, error)

	// Close releases the connection. It must be called exactly once.
	Close(ctx context.Context) error
}
