package processing

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

type CountUpdates struct {
	counter *prometheus.CounterVec
	inner   pipeline.Processing[entity.Update]
}

func NewCountUpdates(p pipeline.Processing[entity.Update], registry prometheus.Registerer, config pipeline.MetricsConfig) (pipeline.Processing[entity.Update], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "updates_total",
		Help:      "Update counter by kind and source.",
	}, []string{"kind", "source"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := CountUpdates{
		counter: counter,
		inner:   p,
	}

	return ret, nil
}

func (p CountUpdates) Process(ctx context.Context, update entity.Update) error {
	if update != nil {
		defer p.counter.WithLabelValues(string(update.Kind()), update.SourceName()).Inc()
	}

	return p.inner.Process(ctx, update)
}
