package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lanikai/framecast/internal/protocol"
	"github.com/lanikai/framecast/internal/quality"
	"github.com/lanikai/framecast/internal/stream"
)

const namespace = "framecast"

// Metrics exported on /metrics. Each Server has its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	sessionsStarted  prometheus.Counter
	sessionsEnded    *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	sessionsPaused   prometheus.Gauge
	handshakesFailed prometheus.Counter
	batchesSent      *prometheus.CounterVec
	framesSent       *prometheus.CounterVec
	commands         *prometheus.CounterVec
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions that completed the quality handshake.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently streaming.",
		}),
		sessionsPaused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_paused",
			Help:      "Sessions currently paused by their peer.",
		}),
		handshakesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_failed_total",
			Help:      "Connections closed before a valid quality selection.",
		}),
		batchesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_sent_total",
			Help:      "Batches sent, by quality.",
		}, []string{"quality"}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames sent, by quality.",
		}, []string{"quality"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Control commands received, by command.",
		}, []string{"command"}),
	}

	m.Registry.MustRegister(
		m.sessionsStarted,
		m.sessionsEnded,
		m.sessionsActive,
		m.sessionsPaused,
		m.handshakesFailed,
		m.batchesSent,
		m.framesSent,
		m.commands,
	)
	return m
}

// hooks returns session hooks that update the metrics for one session.
func (m *Metrics) hooks(level quality.Level) stream.Hooks {
	batches := m.batchesSent.WithLabelValues(level.String())
	frames := m.framesSent.WithLabelValues(level.String())
	return stream.Hooks{
		OnBatch: func(n int) {
			batches.Inc()
			frames.Add(float64(n))
		},
		OnCommand: func(cmd protocol.Command) {
			m.commands.WithLabelValues(cmd.String()).Inc()
		},
		OnPause: func(paused bool) {
			if paused {
				m.sessionsPaused.Inc()
			} else {
				m.sessionsPaused.Dec()
			}
		},
	}
}

func (m *Metrics) sessionStarted() {
	m.sessionsStarted.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) sessionEnded(s *stream.Session, r stream.Result) {
	m.sessionsActive.Dec()
	if s.Paused() {
		m.sessionsPaused.Dec()
	}
	m.sessionsEnded.WithLabelValues(r.Reason.String()).Inc()
}
