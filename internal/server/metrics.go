package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/tlsprobe/internal/reactor"
)

// Error kinds reported by Metrics.SessionErrors.
const (
	errKindProtocol  = "protocol"
	errKindTransport = "transport"
	errKindAccept    = "accept"
)

// Metrics holds the server's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	SessionsActive      prometheus.Gauge
	Responses           *prometheus.CounterVec
	SessionErrors       *prometheus.CounterVec
	BytesIn             prometheus.Counter
	BytesOut            prometheus.Counter
}

// NewMetrics creates the collectors on a private registry, together with Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tlsprobe",
			Name:      "connections_accepted_total",
			Help:      "Connections accepted by the listener.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tlsprobe",
			Name:      "sessions_active",
			Help:      "Sessions that have not finished yet.",
		}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlsprobe",
			Name:      "responses_total",
			Help:      "HTTP responses sent, by status code.",
		}, []string{"code"}),
		SessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlsprobe",
			Name:      "session_errors_total",
			Help:      "Errors that ended a session or the accept loop, by kind.",
		}, []string{"kind"}),
		BytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tlsprobe",
			Name:      "received_bytes_total",
			Help:      "Ciphertext bytes read from clients.",
		}),
		BytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tlsprobe",
			Name:      "sent_bytes_total",
			Help:      "Ciphertext bytes written to clients.",
		}),
	}

	m.registry.MustRegister(
		m.ConnectionsAccepted,
		m.SessionsActive,
		m.Responses,
		m.SessionErrors,
		m.BytesIn,
		m.BytesOut,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, e.g. to add pool statistics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observePool exports the worker pool counters.
func (m *Metrics) observePool(p *reactor.Pool) {
	if m == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tlsprobe",
			Name:      "pool_workers",
			Help:      "Worker goroutines in the session pool.",
		}, func() float64 { return float64(p.Stats().Workers) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tlsprobe",
			Name:      "pool_pending_tasks",
			Help:      "Submitted pool tasks that have not completed.",
		}, func() float64 { return float64(p.Stats().Pending) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "tlsprobe",
			Name:      "pool_panics_total",
			Help:      "Pool tasks that panicked.",
		}, func() float64 { return float64(p.Stats().Panics) }),
	)
}

func (m *Metrics) accepted() {
	if m != nil {
		m.ConnectionsAccepted.Inc()
	}
}

func (m *Metrics) sessionStarted() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

func (m *Metrics) sessionFinished() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

func (m *Metrics) response(code int) {
	if m != nil {
		m.Responses.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}

func (m *Metrics) sessionError(kind string) {
	if m != nil {
		m.SessionErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) received(n int) {
	if m != nil && n > 0 {
		m.BytesIn.Add(float64(n))
	}
}

func (m *Metrics) sent(n int) {
	if m != nil && n > 0 {
		m.BytesOut.Add(float64(n))
	}
}
