package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "capsule"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	ConnectionsTotal  prometheus.Counter
	ConnectionsActive prometheus.Gauge
	HandshakeFailures prometheus.Counter

	ResponsesTotal  *prometheus.CounterVec
	ResponseBytes   prometheus.Counter
	RequestDuration prometheus.Histogram

	HandlerPanics     prometheus.Counter
	TraversalAttempts prometheus.Counter
	RateLimited       prometheus.Counter
}

// NewRegistry creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh prometheus.Registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "accepted_total",
			Help:      "Accepted TCP connections",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "active",
			Help:      "Connections currently being served",
		}),
		HandshakeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tls",
			Name:      "handshake_failures_total",
			Help:      "TLS handshakes that failed or timed out",
		}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gemini",
			Name:      "responses_total",
			Help:      "Responses by Gemini status code",
		}, []string{"status"}),
		ResponseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gemini",
			Name:      "response_bytes_total",
			Help:      "Bytes sent to clients, status lines included",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gemini",
			Name:      "request_duration_seconds",
			Help:      "Time from accept to response completion",
			Buckets:   prometheus.DefBuckets,
		}),
		HandlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gemini",
			Name:      "handler_panics_total",
			Help:      "Route handler panics recovered by the connection handler",
		}),
		TraversalAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "static",
			Name:      "traversal_attempts_total",
			Help:      "Requests that tried to escape the public root",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gemini",
			Name:      "rate_limited_total",
			Help:      "Requests answered with 44 SLOW DOWN",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ConnectionsTotal,
		r.ConnectionsActive,
		r.HandshakeFailures,
		r.ResponsesTotal,
		r.ResponseBytes,
		r.RequestDuration,
		r.HandlerPanics,
		r.TraversalAttempts,
		r.RateLimited,
	)
	return r
}

// ObserveResponse records one finished request.
func (r *Registry) ObserveResponse(status int, bytes int64, elapsed time.Duration) {
	r.ResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	r.ResponseBytes.Add(float64(bytes))
	r.RequestDuration.Observe(elapsed.Seconds())
}

// Gatherer returns the underlying registry for scraping or tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
