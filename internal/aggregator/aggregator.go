package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

const DefaultQueueSize = 256

var ErrNotRunning = errors.New("aggregator is not running")

type SnapshotSource interface {
	Snapshot() *entity.Snapshot
}

// Aggregator is the only writer of the merged state. Adapters hand it updates through
// Process, a single Run loop applies them in dequeue order.
type Aggregator struct {
	logger *logr.Logger

	queue chan entity.Update
	done  chan struct{}

	merge           pipeline.Processing[entity.Update]
	errorProcessing pipeline.ErrorProcessing
	snapshots       SnapshotSource

	version prometheus.Gauge
	queued  prometheus.GaugeFunc
}

// New builds an aggregator around merge, usually a decorated processing.Main, and the
// snapshot source it publishes to. Merge errors go to errorProcessing.
func New(merge pipeline.Processing[entity.Update], snapshots SnapshotSource, errorProcessing pipeline.ErrorProcessing, queueSize int) *Aggregator {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Aggregator{
		queue:           make(chan entity.Update, queueSize),
		done:            make(chan struct{}),
		merge:           merge,
		errorProcessing: errorProcessing,
		snapshots:       snapshots,
	}
}

func (a *Aggregator) WithLogger(logger logr.Logger) *Aggregator {
	a.logger = &logger

	return a
}

// WithMetrics registers the snapshot version and queue length gauges.
func (a *Aggregator) WithMetrics(registry prometheus.Registerer, config pipeline.MetricsConfig) (*Aggregator, error) {
	version := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Name:      "snapshot_version",
		Help:      "Version of the last published snapshot.",
	})

	queued := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Name:      "queue_length",
		Help:      "Updates waiting to be merged.",
	}, func() float64 {
		return float64(len(a.queue))
	})

	for _, c := range []prometheus.Collector{version, queued} {
		err := registry.Register(c)
		if err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	a.version = version
	a.queued = queued

	return a, nil
}

// Process enqueues one update. It blocks while the queue is full unless ctx is done.
func (a *Aggregator) Process(ctx context.Context, update entity.Update) error {
	select {
	case <-a.done:
		return ErrNotRunning
	default:
	}

	select {
	case a.queue <- update:
		return nil
	case <-a.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentSnapshot never blocks.
func (a *Aggregator) CurrentSnapshot() *entity.Snapshot {
	return a.snapshots.Snapshot()
}

// Run applies queued updates until ctx is done. It must be called once.
func (a *Aggregator) Run(ctx context.Context) error {
	defer close(a.done)

	a.logInfo(0, "Aggregator started", "queueSize", cap(a.queue))

	for {
		select {
		case <-ctx.Done():
			a.logInfo(0, "Aggregator stopped", "pending", len(a.queue), "version", a.CurrentSnapshot().Version)

			return nil
		case update := <-a.queue:
			a.apply(ctx, update)
		}
	}
}

func (a *Aggregator) apply(ctx context.Context, update entity.Update) {
	err := a.merge.Process(ctx, update)
	if err != nil {
		a.processError(ctx, update, err)

		return
	}

	snapshot := a.CurrentSnapshot()

	if a.version != nil {
		a.version.Set(float64(snapshot.Version))
	}

	a.logInfo(3, "Snapshot published", "version", snapshot.Version, "kind", update.Kind(), "source", update.SourceName())
}

func (a *Aggregator) processError(ctx context.Context, update entity.Update, mergeErr error) {
	a.logError(mergeErr, "Failed to merge update")

	source := ""
	if update != nil {
		source = update.SourceName()
	}

	pErr := pipeline.AsProcessingError(mergeErr)
	if pErr.Origin == nil {
		pErr = pErr.WithOrigin(pipeline.Origin{Source: source})
	}

	err := a.errorProcessing.Process(ctx, pErr)
	if err != nil {
		a.logError(err, "Error pipeline failed", "category", pErr.Category, "source", source)
	}
}

func (a *Aggregator) logInfo(level int, msg string, keysAndValues ...any) {
	if a.logger == nil {
		return
	}

	a.logger.V(level).Info(msg, keysAndValues...)
}

func (a *Aggregator) logError(err error, msg string, keysAndValues ...any) {
	if a.logger == nil {
		return
	}

	a.logger.Error(err, msg, keysAndValues...)
}
