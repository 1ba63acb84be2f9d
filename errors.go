package pgexec

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure returned by Execute matches one of them with
// errors.Is; a failed rollback additionally matches ErrRollback.
var (
	// ErrInvalidArgument is returned when the input or options are malformed,
	// e.g. an empty query or connection string.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConnection is returned when the database connection cannot be opened.
	ErrConnection = errors.New("connection failed")

	// ErrExecution is returned when the driver reports a failure while
	// running or committing the statement, including command timeouts.
	ErrExecution = errors.New("execution failed")

	// ErrRollback is returned when rolling back after a failed statement
	// fails too. The original failure is reported alongside it.
	ErrRollback = errors.New("rollback failed")

	// ErrCancelled is returned when the caller's context is cancelled
	// while the statement is in progress.
	ErrCancelled = errors.New("cancelled")
)

// QueryError represents a failed invocation with additional context
type QueryError struct {
	Op          string // Step that failed: "validate", "connect", "begin", "execute", "commit"
	Kind        error  // One of the Err* kinds above
	Err         error  // Underlying error
	RollbackErr error  // Set when the rollback itself failed

	// InTransaction is true when a transaction was open when Err occurred.
	InTransaction bool

	// RolledBack is true when the transaction was rolled back successfully.
	RolledBack bool
}

// Error implements the error interface
func (e *QueryError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")

	switch {
	case e.RollbackErr != nil:
		fmt.Fprintf(&b, "rollback failed: %v; original error: %v", e.RollbackErr, e.cause())
	case e.RolledBack:
		fmt.Fprintf(&b, "%v (transaction rolled back)", e.cause())
	case !e.InTransaction && (e.Op == "execute" || e.Op == "commit"):
		fmt.Fprintf(&b, "%v (no transaction was open because isolation level is None; "+
			"no rollback was performed and partial effects may remain)", e.cause())
	default:
		b.WriteString(e.cause().Error())
	}
	return b.String()
}

func (e *QueryError) cause() error {
	if e.Err == nil {
		return e.Kind
	}
	if errors.Is(e.Err, e.Kind) {
		return e.Err
	}
	return fmt.Errorf("%w: %w", e.Kind, e.Err)
}

// Unwrap returns the kind, the underlying error and, when present,
// the rollback error, so errors.Is matches any of them.
func (e *QueryError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.RollbackErr != nil {
		errs = append(errs, ErrRollback, e.RollbackErr)
	}
	return errs
}

func newQueryError(op string, kind, err error) *QueryError {
	return &QueryError{Op: op, Kind: kind, Err: err}
}
