// Package metrics exposes Prometheus counters for wizard runs and the demo
// validator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shipflow"

// Collector holds the collectors for one process on a private registry.
// It satisfies flow.Recorder.
type Collector struct {
	registry *prometheus.Registry

	submissions        prometheus.Counter
	results            *prometheus.CounterVec
	apiErrors          *prometheus.CounterVec
	staleReplies       prometheus.Counter
	completions        *prometheus.CounterVec
	validations        *prometheus.CounterVec
	validationDuration prometheus.Histogram
}

// NewCollector creates and registers every collector.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "submissions_total",
			Help:      "Shipping info submissions published to the validator.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "results_total",
			Help:      "Validator verdicts applied by the flow.",
		}, []string{"valid"}),
		apiErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "api_errors_total",
			Help:      "API exceptions surfaced to the user.",
		}, []string{"status"}),
		staleReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "stale_replies_total",
			Help:      "Validator verdicts ignored because no matching submission was outstanding.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "completions_total",
			Help:      "Finished wizard runs.",
		}, []string{"outcome"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "requests_total",
			Help:      "Submissions handled by the validator.",
		}, []string{"outcome"}),
		validationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "request_duration_seconds",
			Help:      "Time spent answering a submission.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
	}

	c.registry.MustRegister(
		c.submissions,
		c.results,
		c.apiErrors,
		c.staleReplies,
		c.completions,
		c.validations,
		c.validationDuration,
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) SubmissionPublished() {
	c.submissions.Inc()
}

func (c *Collector) ResultReceived(valid bool) {
	c.results.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

func (c *Collector) ErrorReceived(statusCode int) {
	c.apiErrors.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) StaleReplyDropped() {
	c.staleReplies.Inc()
}

func (c *Collector) Completed(cancelled bool) {
	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}
	c.completions.WithLabelValues(outcome).Inc()
}

// RecordValidation records one validator answer. Outcome is "valid",
// "invalid" or "error".
func (c *Collector) RecordValidation(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	c.validations.WithLabelValues(outcome).Inc()
	c.validationDuration.Observe(duration.Seconds())
}
