package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/internal/processing"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

/*
 * DecorateMerge decorates the merge as follow:
 *
 * panic --> duration --> count --> late --> main (merge + publish)
 */
func DecorateMerge(main pipeline.Processing[entity.Update], registry prometheus.Registerer, clock clockwork.Clock, lateAfter time.Duration) (pipeline.Processing[entity.Update], error) {
	ret := main

	ret, err := processing.NewCountLateData(ret, registry, clock, lateAfter, pipeline.MetricsConfig{Namespace: "merge"})
	if err != nil {
		return nil, fmt.Errorf("failed to create late data processor: %w", err)
	}

	ret, err = processing.NewCountUpdates(ret, registry, pipeline.MetricsConfig{Namespace: "merge"})
	if err != nil {
		return nil, fmt.Errorf("failed to create count processor: %w", err)
	}

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clock, pipeline.MetricsConfig{
		Namespace: "merge",
		Buckets:   []float64{0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}

/*
 * DecorateErrorProcessing decorates the error processing as follow:
 *
 *										---> retry --> dlq (payload only)
 *	panic --> duration --> parallel ---|---> error count
 *										---> extra (e.g. degraded forwarder)
 */
func DecorateErrorProcessing(writer repo.ProcessingErrorWriter, registry prometheus.Registerer, namespace string, extra ...pipeline.ErrorProcessing) (pipeline.ErrorProcessing, error) {
	var dlq pipeline.ErrorProcessing = NewDeadLetterProcessing(writer)

	dlq = pipeline.NewRetryProcessing(dlq, pipeline.RetryConfig{MaxAttempt: 3, Delay: 100 * time.Millisecond})

	errorCount, err := pipeline.NewErrorCountProcessing(registry, pipeline.MetricsConfig{Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to create error count processing: %w", err)
	}

	procs := []pipeline.Processing[pipeline.ErrProcessingError]{dlq, errorCount}
	for _, p := range extra {
		procs = append(procs, p)
	}

	var ret pipeline.ErrorProcessing = pipeline.NewParallelProcessing(procs...)

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clockwork.NewRealClock(), pipeline.MetricsConfig{Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}

// NewDeadLetterProcessing writes the processing errors which carry a payload. Transport
// failures have nothing worth replaying and are skipped.
func NewDeadLetterProcessing(writer repo.ProcessingErrorWriter) pipeline.ErrorProcessing {
	return pipeline.ProcessingFunc[pipeline.ErrProcessingError](func(ctx context.Context, pErr pipeline.ErrProcessingError) error {
		if pErr.Origin == nil || len(pErr.Origin.Payload) == 0 {
			return nil
		}

		return writer.WriteProcessingError(ctx, pErr)
	})
}
