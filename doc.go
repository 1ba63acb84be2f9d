// Package pgexec runs single parameterized PostgreSQL statements and returns
// their outcome as a uniform Result.
//
// Every call opens its own connection, optionally wraps the statement in a
// transaction, and closes the connection again before returning. The
// package holds no connection pool and no per-call state, so one Executor
// can serve any number of goroutines.
//
// # Key Features
//
//   - Four execution modes: NonQuery, Reader, Scalar and Auto detection
//   - Configurable transaction isolation with automatic rollback on failure
//   - Per-statement command timeout and context cancellation
//   - Choice of error policy: return errors, or report failures as results
//   - Pluggable drivers: pgx/v5 (default) and database/sql with lib/pq
//   - Structured logging, Prometheus metrics and OpenTelemetry tracing
//
// # Quick Start
//
//	exec := pgexec.New(pgxv5.New(), pgexec.WithLogger(slog.Default()))
//
//	res, err := exec.Execute(ctx, pgexec.Input{
//	    Query:            "SELECT id, selite FROM lista WHERE id > @id",
//	    Parameters:       []pgexec.Parameter{{Name: "id", Value: pgexec.Int(1)}},
//	    ConnectionString: "postgres://postgres@localhost:5432/postgres",
//	}, pgexec.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	rows, _ := res.Rows()
//
// # Execution Modes
//
// ExecuteTypeNonQuery reports the number of affected rows.
// ExecuteTypeReader materializes every row, keeping column order and case.
// ExecuteTypeScalar returns the first column of the first row.
// ExecuteTypeAuto picks Reader or NonQuery from the statement text; see
// ResolveExecuteType.
//
// # Transactions
//
// Options.IsolationLevel selects the isolation of the wrapping transaction.
// IsolationDefault runs serializable. IsolationNone disables the
// transaction; a failure then reports that no rollback was performed.
// Rollback always runs detached from the caller's cancellation.
//
// # Errors
//
// With Options.ThrowErrorOnFailure set, failures are returned as a
// *QueryError matching one of ErrInvalidArgument, ErrConnection,
// ErrExecution, ErrCancelled and, when the rollback failed too, ErrRollback:
//
//	if errors.Is(err, pgexec.ErrConnection) {
//	    // retry later
//	}
//
// Without it, Execute never returns an error and failures come back as a
// Result with Success=false and a descriptive ErrorMessage.
//
// # Drivers
//
// Parameters bind through the driver's native placeholders: @name with
// driver/pgxv5, and $1..$n in declaration order with driver/databasesql.
//
// # Command Line and HTTP
//
// cmd/pgexec exposes the executor as "pgexec exec" for one-off statements
// and "pgexec serve" for a JSON endpoint at POST /v1/execute.
package pgexec
