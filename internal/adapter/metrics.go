package adapter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

const (
	resultSuccess = "success"
	resultSkipped = "skipped"
)

type fetchMetrics struct {
	fetches *prometheus.CounterVec
}

func newFetchMetrics(registry prometheus.Registerer, config pipeline.MetricsConfig) (*fetchMetrics, error) {
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "fetches_total",
		Help:      "Source fetches by outcome, failed fetches are labelled with their error category.",
	}, []string{"source", "result"})

	err := registry.Register(fetches)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	return &fetchMetrics{fetches: fetches}, nil
}

func (m *fetchMetrics) fetched(source string, result string) {
	if m == nil {
		return
	}

	m.fetches.WithLabelValues(source, result).Inc()
}
