package pgexec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/youssefsiam38/pgexec/driver"
)

const tracerName = "github.com/youssefsiam38/pgexec"

// Executor runs single parameterized statements through a driver.
// It holds no per-call state and is safe for concurrent use; every call
// opens and closes its own connection.
type Executor struct {
	driver  driver.Driver
	logger  Logger
	metrics Metrics
	tracer  trace.Tracer
}

// Option is a functional option for configuring an Executor
type Option func(*Executor)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithTracerProvider sets the provider used to create spans.
// Defaults to the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an Executor using the given driver.
//
// Example:
//
//	exec := pgexec.New(pgxv5.New(), pgexec.WithLogger(slog.Default()))
//	res, err := exec.Execute(ctx, pgexec.Input{
//	    Query:            "SELECT * FROM users WHERE id = @id",
//	    Parameters:       []pgexec.Parameter{{Name: "id", Value: pgexec.Int(1)}},
//	    ConnectionString: connString,
//	}, pgexec.DefaultOptions())
func New(drv driver.Driver, opts ...Option) *Executor {
	e := &Executor{
		driver: drv,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Driver returns the underlying driver.
func (e *Executor) Driver() driver.Driver {
	return e.driver
}

func (e *Executor) log() Logger {
	if e.logger == nil {
		return noopLogger{}
	}
	return e.logger
}

// Execute runs in.Query and returns its Result.
//
// Unless opts.IsolationLevel is IsolationNone the statement runs in a
// transaction that is committed on success and rolled back on failure.
//
// With opts.ThrowErrorOnFailure set, failures are returned as a *QueryError
// and the Result is nil. Otherwise Execute never returns an error: failures
// come back as a Result with Success=false and a descriptive ErrorMessage.
func (e *Executor) Execute(ctx context.Context, in Input, opts Options) (*Result, error) {
	invocationID := uuid.NewString()
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "pgexec.Execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("pgexec.invocation_id", invocationID),
			attribute.String("pgexec.driver", e.driver.Name()),
			attribute.String("pgexec.isolation_level", opts.IsolationLevel.String()),
		),
	)
	defer span.End()

	res, mode, err := e.execute(ctx, invocationID, in, opts)
	duration := time.Since(start)
	span.SetAttributes(attribute.String("pgexec.execute_type", mode.String()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.record(ctx, mode, outcome(err), duration, nil)

		e.log().Error("query failed",
			"invocation_id", invocationID,
			"execute_type", mode.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)

		if opts.ThrowErrorOnFailure {
			return nil, err
		}
		return failureResult(err), nil
	}

	span.SetAttributes(attribute.Int64("pgexec.records_affected", res.RecordsAffected))
	e.record(ctx, mode, "success", duration, res)

	e.log().Info("query completed",
		"invocation_id", invocationID,
		"execute_type", mode.String(),
		"records_affected", res.RecordsAffected,
		"duration_ms", duration.Milliseconds(),
	)
	return res, nil
}

// execute walks one invocation through connect, optional transaction,
// execution and commit or rollback. The returned mode is the resolved one
// when resolution got that far.
func (e *Executor) execute(ctx context.Context, invocationID string, in Input, opts Options) (*Result, ExecuteType, error) {
	log := e.log()

	cmd, err := normalize(ctx, in, opts, e.driver.SupportsSnapshot())
	if err != nil {
		if ctx.Err() != nil {
			return nil, in.ExecuteType, newQueryError("validate", ErrCancelled, ctx.Err())
		}
		return nil, in.ExecuteType, newQueryError("validate", ErrInvalidArgument, err)
	}

	log.Debug("executing query",
		"invocation_id", invocationID,
		"driver", e.driver.Name(),
		"execute_type", cmd.mode.String(),
		"requested_execute_type", in.ExecuteType.String(),
		"isolation_level", cmd.isolation.String(),
		"parameters", len(cmd.args),
		"timeout", cmd.timeout,
	)

	conn, err := e.driver.Open(ctx, cmd.connString)
	if err != nil {
		return nil, cmd.mode, newQueryError("connect", kindOf(ctx, ErrConnection), err)
	}
	defer func() {
		if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to close connection", "invocation_id", invocationID, "error", err)
		}
	}()

	if !cmd.inTransaction() {
		res, err := run(ctx, conn, cmd)
		if err != nil {
			return nil, cmd.mode, newQueryError("execute", kindOf(ctx, ErrExecution), err)
		}
		return res, cmd.mode, nil
	}

	tx, err := conn.BeginTx(ctx, driver.TxOptions{IsoLevel: cmd.isolation})
	if err != nil {
		return nil, cmd.mode, newQueryError("begin", kindOf(ctx, ErrExecution), err)
	}

	res, err := run(ctx, tx, cmd)
	if err != nil {
		qerr := newQueryError("execute", kindOf(ctx, ErrExecution), err)
		qerr.InTransaction = true

		// Rollback runs detached from cancellation so an aborted call does
		// not leave the transaction open.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			qerr.RollbackErr = rbErr
			log.Error("rollback failed", "invocation_id", invocationID, "error", rbErr)
		} else {
			qerr.RolledBack = true
			log.Warn("transaction rolled back", "invocation_id", invocationID, "error", err)
		}
		e.count(ctx, MetricRollbacks, cmd.mode, outcome(qerr))
		return nil, cmd.mode, qerr
	}

	if err := tx.Commit(ctx); err != nil {
		// A failed commit ends the transaction in both bundled drivers.
		qerr := newQueryError("commit", kindOf(ctx, ErrExecution), err)
		qerr.InTransaction = true
		return nil, cmd.mode, qerr
	}

	return res, cmd.mode, nil
}

// run executes cmd on exec under the command timeout.
func run(ctx context.Context, exec driver.Executor, cmd *command) (*Result, error) {
	execCtx := ctx
	if cmd.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, cmd.timeout)
		defer cancel()
	}

	res, err := dispatch(execCtx, exec, cmd)
	if err != nil && ctx.Err() == nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("command timeout of %s exceeded: %w", cmd.timeout, err)
	}
	return res, err
}

func dispatch(ctx context.Context, exec driver.Executor, cmd *command) (*Result, error) {
	switch cmd.mode {
	case ExecuteTypeNonQuery:
		affected, err := exec.Exec(ctx, cmd.sql, cmd.args...)
		if err != nil {
			return nil, err
		}
		return nonQueryResult(affected), nil

	case ExecuteTypeReader:
		rows, err := exec.Query(ctx, cmd.sql, cmd.args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		set, err := readRows(ctx, rows)
		if err != nil {
			return nil, err
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return readerResult(set, rows.RowsAffected()), nil

	case ExecuteTypeScalar:
		rows, err := exec.Query(ctx, cmd.sql, cmd.args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		v, err := readScalar(ctx, rows)
		if err != nil {
			return nil, err
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return scalarResult(v), nil

	default:
		return nil, fmt.Errorf("%w: unsupported execute type %s", ErrInvalidArgument, cmd.mode)
	}
}

// kindOf returns ErrCancelled when the caller's context is done and def
// otherwise.
func kindOf(ctx context.Context, def error) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return def
}

// outcome returns the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRollback):
		return "rollback_failed"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrConnection):
		return "connection_error"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "execution_error"
	}
}

func (e *Executor) record(ctx context.Context, mode ExecuteType, result string, d time.Duration, res *Result) {
	if e.metrics == nil {
		return
	}
	labels := []string{"driver", e.driver.Name(), "execute_type", mode.String(), "outcome", result}
	e.metrics.RecordHistogram(ctx, MetricQueryDuration, d.Seconds(), labels...)
	e.metrics.IncrementCounter(ctx, MetricQueries, labels...)

	if res != nil {
		if rows, ok := res.Rows(); ok {
			e.metrics.RecordHistogram(ctx, MetricRowsReturned, float64(len(rows)),
				"driver", e.driver.Name(), "execute_type", mode.String())
		}
	}
}

func (e *Executor) count(ctx context.Context, name string, mode ExecuteType, result string) {
	if e.metrics == nil {
		return
	}
	e.metrics.IncrementCounter(ctx, name, "driver", e.driver.Name(), "execute_type", mode.String(), "outcome", result)
}
