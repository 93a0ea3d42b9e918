package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

// CountLateData counts anomalies and log entries whose own timestamp is older than
// lateAfter when they reach the aggregator.
type CountLateData struct {
	counter   *prometheus.CounterVec
	clock     clockwork.Clock
	lateAfter time.Duration
	inner     pipeline.Processing[entity.Update]
}

func NewCountLateData(p pipeline.Processing[entity.Update], registry prometheus.Registerer, clock clockwork.Clock, lateAfter time.Duration, config pipeline.MetricsConfig) (pipeline.Processing[entity.Update], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "late_data_total",
		Help:      "Late data counter by update kind and source.",
	}, []string{"kind", "source"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := CountLateData{
		counter:   counter,
		clock:     clock,
		lateAfter: lateAfter,
		inner:     p,
	}

	return ret, nil
}

func (p CountLateData) Process(ctx context.Context, update entity.Update) error {
	err := p.inner.Process(ctx, update)
	if err != nil {
		return err // Count only successfully processed data
	}

	late := p.countLate(update, p.computeDeadline())
	if late == 0 {
		return nil
	}

	p.counter.WithLabelValues(string(update.Kind()), update.SourceName()).Add(float64(late))

	return nil
}

func (p CountLateData) countLate(update entity.Update, deadline time.Time) int {
	ret := 0

	switch u := update.(type) {
	case entity.AnomalySetReplaced:
		for _, event := range u.Events {
			if isLate(event.Timestamp, deadline) {
				ret++
			}
		}
	case entity.LogsRefreshed:
		for _, entry := range u.Entries {
			if isLate(entry.Timestamp, deadline) {
				ret++
			}
		}
	}

	return ret
}

// Zero timestamps are unknown, not late.
func isLate(ts time.Time, deadline time.Time) bool {
	return !ts.IsZero() && ts.Before(deadline)
}

func (p CountLateData) computeDeadline() time.Time {
	return p.clock.Now().UTC().Add(-p.lateAfter)
}
