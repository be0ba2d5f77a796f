package mentor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK            = "ok"
	outcomeMissingReply  = "missing_reply"
	outcomeRequestFailed = "request_failed"
	outcomeRejected      = "rejected"
)

// Metrics collects pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	exchanges      *prometheus.CounterVec
	modelLatency   prometheus.Histogram
	revealTicks    prometheus.Counter
	activeSessions prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raizian_exchanges_total",
			Help: "Chat submissions by outcome.",
		}, []string{"outcome"}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "raizian_model_request_seconds",
			Help:    "Latency of model calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		revealTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raizian_reveal_ticks_total",
			Help: "Progressive reveal writes to the transcript.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raizian_active_sessions",
			Help: "Chat sessions currently held in memory.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.exchanges, m.modelLatency, m.revealTicks, m.activeSessions)
	}
	return m
}

func (m *Metrics) exchange(outcome string) {
	if m != nil {
		m.exchanges.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeModel(d time.Duration) {
	if m != nil {
		m.modelLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) tick() {
	if m != nil {
		m.revealTicks.Inc()
	}
}

func (m *Metrics) sessions(n int) {
	if m != nil {
		m.activeSessions.Set(float64(n))
	}
}
