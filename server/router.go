// Package server exposes Executor.Execute over HTTP.
//
// Routes:
//
//	POST /v1/execute   run one statement, body {"input": {...}, "options": {...}}
//	GET  /healthz      liveness probe
//	GET  /metrics      Prometheus exposition, when Config.MetricsHandler is set
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/youssefsiam38/pgexec"
)

// Executor runs statements. *pgexec.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, in pgexec.Input, opts pgexec.Options) (*pgexec.Result, error)
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics records request durations. *metrics.Recorder implements it.
type Metrics interface {
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
}

// Config holds router configuration.
type Config struct {
	// Defaults are the options applied when a request omits them.
	Defaults pgexec.Options

	// Logger for structured logging.
	Logger Logger

	// Metrics records per-request durations. Optional.
	Metrics Metrics

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// TracerProvider for otelhttp. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// JWTSecret enables HS256 bearer authentication on /v1 routes.
	JWTSecret []byte

	// RateLimit is the sustained requests per second allowed on /v1
	// routes. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst. Defaults to 1 when RateLimit is set.
	RateBurst int

	// MaxBodyBytes bounds request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// router holds the API router state.
type router struct {
	exec   Executor
	config *Config
}

// NewRouter creates a new API router.
func NewRouter(exec Executor, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{Defaults: pgexec.DefaultOptions()}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	rt := &router{
		exec:   exec,
		config: cfg,
	}

	r := mux.NewRouter()
	r.Use(recoveryMiddleware(cfg.Logger))
	r.Use(loggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(metricsMiddleware(cfg.Metrics))
	}

	r.HandleFunc("/healthz", rt.handleHealth).Methods(http.MethodGet)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(jsonMiddleware)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		api.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)))
	}
	if len(cfg.JWTSecret) > 0 {
		api.Use(authMiddleware(cfg.JWTSecret))
	}
	api.HandleFunc("/execute", rt.handleExecute).Methods(http.MethodPost)

	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	return otelhttp.NewHandler(r, "pgexec.http", opts...)
}
