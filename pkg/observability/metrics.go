package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/haptix/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	SessionsActive prometheus.Gauge
	NodesFired     prometheus.Counter
	Transcripts    *prometheus.CounterVec
	Dispatches     *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "haptix_sessions_active",
			Help: "Number of running sessions",
		}),
		NodesFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "haptix_nodes_fired_total",
			Help: "Total number of node firings",
		}),
		Transcripts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haptix_transcripts_total",
				Help: "Total number of processed transcript fragments",
			},
			[]string{"matched"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haptix_stimulus_dispatch_total",
				Help: "Total number of stimulus pulses by outcome",
			},
			[]string{"mode", "result"},
		),
	}

	for _, c := range []prometheus.Collector{m.SessionsActive, m.NodesFired, m.Transcripts, m.Dispatches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, _ *domain.SessionEvent) {
			m.SessionsActive.Inc()
		},
		OnSessionStop: func(_ context.Context, _ *domain.SessionEvent) {
			m.SessionsActive.Dec()
		},
		OnTranscript: func(_ context.Context, e *domain.TranscriptEvent) {
			m.Transcripts.WithLabelValues(strconv.FormatBool(len(e.ExecutedNodes) > 0)).Inc()
		},
		OnNodeFire: func(_ context.Context, _ *domain.NodeEvent) {
			m.NodesFired.Inc()
		},
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.Dispatches.WithLabelValues(e.Mode, result).Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
