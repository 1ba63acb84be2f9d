// Package metrics records pgexec execution statistics with Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/youssefsiam38/pgexec"
)

// HTTPResponse is the histogram recorded by the server middleware.
const HTTPResponse = "pgexec_http_response_seconds"

var (
	invocationLabels = []string{"driver", "execute_type", "outcome"}
	rowLabels        = []string{"driver", "execute_type"}
	httpLabels       = []string{"path", "method", "status"}
)

// Recorder implements pgexec.Metrics on a Prometheus registry.
// Names that were not registered are ignored, as are label sets that do
// not match the registered label names.
type Recorder struct {
	registry   *prometheus.Registry
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
}

// New creates a Recorder and registers the pgexec collectors on reg.
// A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: reg,
		histograms: map[string]*prometheus.HistogramVec{
			pgexec.MetricQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    pgexec.MetricQueryDuration,
				Help:    "Duration of Execute calls in seconds.",
				Buckets: prometheus.DefBuckets,
			}, invocationLabels),
			pgexec.MetricRowsReturned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    pgexec.MetricRowsReturned,
				Help:    "Rows materialized by Reader executions.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			}, rowLabels),
			HTTPResponse: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    HTTPResponse,
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			}, httpLabels),
		},
		counters: map[string]*prometheus.CounterVec{
			pgexec.MetricQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: pgexec.MetricQueries,
				Help: "Execute calls by outcome.",
			}, invocationLabels),
			pgexec.MetricRollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: pgexec.MetricRollbacks,
				Help: "Transactions rolled back after a failed statement.",
			}, invocationLabels),
		},
	}

	for _, h := range r.histograms {
		reg.MustRegister(h)
	}
	for _, c := range r.counters {
		reg.MustRegister(c)
	}
	return r
}

// RecordHistogram observes value on the named histogram.
func (r *Recorder) RecordHistogram(_ context.Context, name string, value float64, labels ...string) {
	vec, ok := r.histograms[name]
	if !ok {
		return
	}
	h, err := vec.GetMetricWith(toLabels(labels))
	if err != nil {
		return
	}
	h.Observe(value)
}

// IncrementCounter adds one to the named counter.
func (r *Recorder) IncrementCounter(_ context.Context, name string, labels ...string) {
	vec, ok := r.counters[name]
	if !ok {
		return
	}
	c, err := vec.GetMetricWith(toLabels(labels))
	if err != nil {
		return
	}
	c.Inc()
}

// Registry returns the registry the collectors are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// toLabels pairs up key/value labels. A trailing key without value is dropped.
func toLabels(kv []string) prometheus.Labels {
	labels := make(prometheus.Labels, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		labels[kv[i]] = kv[i+1]
	}
	return labels
}

var _ pgexec.Metrics = (*Recorder)(nil)
