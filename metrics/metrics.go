// Package metrics exports client request metrics to Prometheus.
package metrics

import (
	"strconv"

	"github.com/cnosuke/httpget/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "httpget"

// OutcomeOK labels requests that completed with a result.
const OutcomeOK = "ok"

// Metrics holds all Prometheus metrics for httpget.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	RedirectHops     prometheus.Histogram
	HopsTotal        *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of logical requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Logical request latency including every redirect hop",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"method"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Current number of logical requests being processed",
			},
		),
		RedirectHops: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "redirect_hops",
				Help:      "Number of redirects followed per logical request",
				Buckets:   prometheus.LinearBuckets(0, 1, 12),
			},
		),
		HopsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hops_total",
				Help:      "Total number of exchanges by response status class",
			},
			[]string{"status_class"},
		),
	}
}

// Handlers returns the event handlers that feed m. Install them with
// client.WithHandlers.
func (m *Metrics) Handlers() *client.HandlerGroup {
	g := &client.HandlerGroup{}
	g.PushBack(client.BeforeExecution, client.HandlerFunc(m.start))
	g.PushBack(client.AfterHop, client.HandlerFunc(m.hop))
	g.PushBack(client.AfterExecution, client.HandlerFunc(m.end))
	return g
}

func (m *Metrics) start(_ client.Event, _ *client.Execution) {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) hop(_ client.Event, e *client.Execution) {
	m.HopsTotal.WithLabelValues(StatusClass(e)).Inc()
}

func (m *Metrics) end(_ client.Event, e *client.Execution) {
	m.RequestsInFlight.Dec()

	method := e.Method()
	outcome := OutcomeOK
	if e.Err != nil {
		outcome = e.Err.Kind.String()
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(e.Duration().Seconds())
	m.RedirectHops.Observe(float64(e.Chain.Hops))
}

// StatusClass returns "2xx", "3xx" and so on for the latest hop, or
// "error" when the hop produced no response.
func StatusClass(e *client.Execution) string {
	if e.Raw == nil {
		return "error"
	}
	return strconv.Itoa(e.Raw.Status/100) + "xx"
}
