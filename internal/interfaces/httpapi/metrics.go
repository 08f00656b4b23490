package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"swapwatch/internal/application"
	"swapwatch/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "swapwatch"

// Metrics implements application.QueryObserver and instruments the HTTP
// handlers. Each instance owns its registry.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	IndexQueries      *prometheus.CounterVec
	PollsExhausted    *prometheus.CounterVec
	SpendCalculations *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		IndexQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "queries_total",
			Help:      "Index queries issued, by query kind and outcome.",
		}, []string{"kind", "outcome"}),
		PollsExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "polls_exhausted_total",
			Help:      "Polls that ran out of retry budget before the record was indexed.",
		}, []string{"kind"}),
		SpendCalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spend",
			Name:      "calculations_total",
			Help:      "Max spendable calculations, by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started.",
		}, func() float64 { return time.Since(m.startTime).Seconds() }),
		m.IndexQueries,
		m.PollsExhausted,
		m.SpendCalculations,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

func (m *Metrics) OnQuery(kind domain.QueryKind, outcome application.OutcomeKind) {
	m.IndexQueries.WithLabelValues(string(kind), outcome.String()).Inc()
}

func (m *Metrics) OnExhausted(kind domain.QueryKind) {
	m.PollsExhausted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveSpend(result string) {
	m.SpendCalculations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
