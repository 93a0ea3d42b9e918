package adapter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

type fetchFunc func(ctx context.Context) (entity.Update, error)

type pollSource struct {
	name  string
	fetch fetchFunc
	busy  atomic.Bool
}

// PollAdapter fetches every registered source on each tick. Sources are fetched
// independently, a source still busy with the previous tick skips the current one.
type PollAdapter struct {
	logger *logr.Logger

	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration

	sources []*pollSource
	metrics *fetchMetrics

	sink            pipeline.Processing[entity.Update]
	errorProcessing pipeline.ErrorProcessing
}

func NewPollAdapter(clock clockwork.Clock, interval time.Duration, timeout time.Duration, sink pipeline.Processing[entity.Update], errorProcessing pipeline.ErrorProcessing) *PollAdapter {
	return &PollAdapter{
		clock:           clock,
		interval:        interval,
		timeout:         timeout,
		sink:            sink,
		errorProcessing: errorProcessing,
	}
}

func (a *PollAdapter) WithLogger(logger logr.Logger) *PollAdapter {
	a.logger = &logger

	return a
}

// WithMetrics counts the fetches of every source by outcome.
func (a *PollAdapter) WithMetrics(registry prometheus.Registerer, config pipeline.MetricsConfig) (*PollAdapter, error) {
	metrics, err := newFetchMetrics(registry, config)
	if err != nil {
		return nil, err
	}

	a.metrics = metrics

	return a, nil
}

func (a *PollAdapter) WithHeartbeats(reader repo.AgentReader) *PollAdapter {
	return a.withSource(SourceAgents, func(ctx context.Context) (entity.Update, error) {
		records, err := reader.FetchAgents(ctx)
		if err != nil {
			return nil, err
		}

		heartbeats, err := DecodeHeartbeats(records)
		if err != nil {
			return nil, newDecodeError(err, records)
		}

		return entity.HeartbeatsRefreshed{Header: a.header(SourceAgents), Heartbeats: heartbeats}, nil
	})
}

func (a *PollAdapter) WithLogs(reader repo.LogReader, query repo.LogQuery) *PollAdapter {
	return a.withSource(SourceLogs, func(ctx context.Context) (entity.Update, error) {
		result, err := reader.FetchLogs(ctx, query)
		if err != nil {
			return nil, err
		}

		entries, err := DecodeLogs(result)
		if err != nil {
			return nil, newDecodeError(err, result)
		}

		return entity.LogsRefreshed{Header: a.header(SourceLogs), Entries: entries}, nil
	})
}

// WithAnomalies polls the full anomaly set, used when no push channel is available.
func (a *PollAdapter) WithAnomalies(reader repo.AnomalyReader) *PollAdapter {
	return a.withSource(SourceAnomalies, func(ctx context.Context) (entity.Update, error) {
		events, err := fetchAnomalySet(ctx, reader)
		if err != nil {
			return nil, err
		}

		return entity.AnomalySetReplaced{Header: a.header(SourceAnomalies), Events: events}, nil
	})
}

func (a *PollAdapter) withSource(name string, fetch fetchFunc) *PollAdapter {
	a.sources = append(a.sources, &pollSource{name: name, fetch: fetch})

	return a
}

// Run polls once immediately then on every interval until ctx is done. In flight
// fetches are cancelled and waited for before returning.
func (a *PollAdapter) Run(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	a.logInfo(0, "Poll adapter started", "interval", a.interval, "timeout", a.timeout, "sources", len(a.sources))

	a.tick(ctx, &wg)

	for {
		select {
		case <-ctx.Done():
			a.logInfo(0, "Poll adapter stopped")

			return nil
		case <-ticker.Chan():
			a.tick(ctx, &wg)
		}
	}
}

func (a *PollAdapter) tick(ctx context.Context, wg *sync.WaitGroup) {
	for _, source := range a.sources {
		if !source.busy.CompareAndSwap(false, true) {
			a.logInfo(1, "Previous fetch still running, skipping tick", "source", source.name)
			a.metrics.fetched(source.name, resultSkipped)

			continue
		}

		wg.Add(1)

		go func(source *pollSource) {
			defer wg.Done()
			defer source.busy.Store(false)

			a.poll(ctx, source)
		}(source)
	}
}

func (a *PollAdapter) poll(ctx context.Context, source *pollSource) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	update, err := source.fetch(fetchCtx)
	if ctx.Err() != nil {
		return // Shutting down
	}

	if err != nil {
		pErr := classify(err, source.name)
		a.metrics.fetched(source.name, pErr.Category)

		a.logInfo(1, "Source degraded", "source", source.name, "category", pErr.Category, "error", err.Error())

		err = a.errorProcessing.Process(ctx, pErr)
		if err != nil {
			a.logError(err, "Error pipeline failed", "source", source.name)
		}

		return
	}

	a.logInfo(2, "Source fetched", "source", source.name)
	a.metrics.fetched(source.name, resultSuccess)

	err = a.sink.Process(ctx, update)
	if err != nil && ctx.Err() == nil {
		a.logError(err, "Failed to emit update", "source", source.name)
	}
}

func (a *PollAdapter) header(source string) entity.Header {
	return entity.Header{Source: source, ReceivedAt: a.clock.Now()}
}

func (a *PollAdapter) logInfo(level int, msg string, keysAndValues ...any) {
	if a.logger == nil {
		return
	}

	a.logger.V(level).Info(msg, keysAndValues...)
}

func (a *PollAdapter) logError(err error, msg string, keysAndValues ...any) {
	if a.logger == nil {
		return
	}

	a.logger.Error(err, msg, keysAndValues...)
}
