package pgexec

import "context"

// Logger interface for structured logging.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Metrics records execution statistics. Labels are key/value pairs.
// *metrics.Recorder implements it with Prometheus.
type Metrics interface {
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
	IncrementCounter(ctx context.Context, name string, labels ...string)
}

// Metric names recorded by Executor.
const (
	MetricQueryDuration = "pgexec_query_duration_seconds"
	MetricQueries       = "pgexec_queries_total"
	MetricRowsReturned  = "pgexec_rows_returned"
	MetricRollbacks     = "pgexec_rollbacks_total"
)
