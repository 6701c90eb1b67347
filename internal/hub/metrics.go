package hub

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type hubMetrics struct {
	activeSessions prometheus.Gauge
	sessionTotal   prometheus.Counter
	authFailures   prometheus.Counter
	superseded     prometheus.Counter
	frames         *prometheus.CounterVec
	frameLatency   *prometheus.HistogramVec
	egressDrops    prometheus.Counter
}

func newHubMetrics(reg prometheus.Registerer) *hubMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &hubMetrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "photochat_sessions_active",
			Help: "Current number of streaming chat sessions.",
		}),
		sessionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photochat_sessions_total",
			Help: "Total number of authenticated sessions since start.",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photochat_session_auth_failures_total",
			Help: "Live connections closed because the token was rejected.",
		}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photochat_sessions_superseded_total",
			Help: "Sessions closed because the same user connected again.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photochat_frames_total",
			Help: "Inbound frames grouped by type and outcome.",
		}, []string{"type", "outcome"}),
		frameLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photochat_frame_latency_seconds",
			Help:    "Time spent handling one inbound frame.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"type"}),
		egressDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photochat_egress_drops_total",
			Help: "Outbound frames dropped because a connection was saturated or closed.",
		}),
	}

	reg.MustRegister(
		m.activeSessions,
		m.sessionTotal,
		m.authFailures,
		m.superseded,
		m.frames,
		m.frameLatency,
		m.egressDrops,
	)
	return m
}

func (m *hubMetrics) incSession() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.sessionTotal.Inc()
}

func (m *hubMetrics) decSession() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *hubMetrics) recordAuthFailure() {
	if m == nil {
		return
	}
	m.authFailures.Inc()
}

func (m *hubMetrics) recordSuperseded() {
	if m == nil {
		return
	}
	m.superseded.Inc()
}

func (m *hubMetrics) recordFrame(frameType, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(frameType, outcome).Inc()
	m.frameLatency.WithLabelValues(frameType).Observe(time.Since(started).Seconds())
}

func (m *hubMetrics) recordEgressDrop() {
	if m == nil {
		return
	}
	m.egressDrops.Inc()
}
