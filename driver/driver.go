// Package driver provides database driver abstractions for pgexec.
//
// This package defines the interfaces that database drivers must implement
// to run queries for pgexec. It enables support for multiple database
// backends (pgx/v5, database/sql) behind one execution path.
package driver

import (
	"context"
	"fmt"
)

// Driver opens dedicated connections for single query invocations.
//
// Implementations should be created using the driver-specific New() functions:
//   - github.com/youssefsiam38/pgexec/driver/pgxv5.New()
//   - github.com/youssefsiam38/pgexec/driver/databasesql.New()
type Driver interface {
	// Name identifies the driver in logs and metrics.
	Name() string

	// Open establishes a new connection using a libpq compatible
	// connection string. The caller owns the returned Conn and must Close it.
	Open(ctx context.Context, connString string) (Conn, error)

	// SupportsSnapshot reports whether BeginTx accepts IsoLevelSnapshot.
	// PostgreSQL has no distinct snapshot level, so both bundled drivers
	// return false and callers fall back to serializable.
	SupportsSnapshot() bool
}

// IsoLevel is a driver-neutral transaction isolation level.
type IsoLevel int

const (
	// IsoLevelUnspecified means the statement runs without a transaction.
	IsoLevelUnspecified IsoLevel = iota
	IsoLevelReadUncommitted
	IsoLevelReadCommitted
	IsoLevelRepeatableRead
	IsoLevelSnapshot
	IsoLevelSerializable
)

// String returns the SQL spelling of the level.
func (l IsoLevel) String() string {
	switch l {
	case IsoLevelUnspecified:
		return "unspecified"
	case IsoLevelReadUncommitted:
		return "read uncommitted"
	case IsoLevelReadCommitted:
		return "read committed"
	case IsoLevelRepeatableRead:
		return "repeatable read"
	case IsoLevelSnapshot:
		return "snapshot"
	case IsoLevelSerializable:
		return "serializable"
	default:
		return fmt.Sprintf("IsoLevel(%d)", int(l))
	}
}

// TxOptions configures a transaction started with Conn.BeginTx.
type TxOptions struct {
	IsoLevel IsoLevel
}
