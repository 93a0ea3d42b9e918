package insight

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

type metrics struct {
	requests *prometheus.CounterVec
	fetches  *prometheus.CounterVec
	entries  prometheus.Gauge
}

// WithMetrics registers the request, fetch and cache size metrics.
func (m *Manager) WithMetrics(registry prometheus.Registerer, config pipeline.MetricsConfig) (*Manager, error) {
	ret := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_total",
			Help:      "Insight requests by served state.",
		}, []string{"state"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "fetches_total",
			Help:      "Insight backend fetches by result.",
		}, []string{"result"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "entries",
			Help:      "Identities held by the insight cache.",
		}),
	}

	for _, c := range []prometheus.Collector{ret.requests, ret.fetches, ret.entries} {
		err := registry.Register(c)
		if err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	m.metrics = ret

	return m, nil
}

func (m *metrics) request(state State) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(string(state)).Inc()
}

func (m *metrics) fetched(success bool) {
	if m == nil {
		return
	}

	result := "failure"
	if success {
		result = "success"
	}

	m.fetches.WithLabelValues(result).Inc()
}

func (m *metrics) setEntries(size int) {
	if m == nil {
		return
	}

	m.entries.Set(float64(size))
}
