package insight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

const sourceName = "insight"

type SnapshotSource interface {
	CurrentSnapshot() *entity.Snapshot
}

// Manager caches one insight per identity.
//
// A fresh insight is served from memory. An expired one is served as is while a single
// background fetch refreshes it. A failed refresh keeps the previous insight flagged as
// stale. Fetches are shared by every caller of the identity and are never cancelled by
// them, only bounded by the fetch timeout.
type Manager struct {
	logger *logr.Logger

	reader  repo.InsightReader
	sink    pipeline.Processing[entity.Update]
	clock   clockwork.Clock
	config  Config
	metrics *metrics

	group singleflight.Group

	mu      sync.Mutex
	entries map[entity.Identity]*entry
}

func NewManager(reader repo.InsightReader, clock clockwork.Clock, config Config) *Manager {
	if config.FailureBackoff <= 0 {
		config.FailureBackoff = config.TTL
	}

	return &Manager{
		reader:  reader,
		clock:   clock,
		config:  config,
		entries: make(map[entity.Identity]*entry),
	}
}

func (m *Manager) WithLogger(logger logr.Logger) *Manager {
	m.logger = &logger

	return m
}

// WithSink makes the manager publish every stored or evicted insight to sink.
func (m *Manager) WithSink(sink pipeline.Processing[entity.Update]) *Manager {
	m.sink = sink

	return m
}

// Request never blocks on the backend. It starts a fetch when the identity has no usable
// insight and none is in flight.
func (m *Manager) Request(ctx context.Context, id entity.Identity) Result {
	if !id.IsAssigned() {
		return Result{Identity: id, State: StateAbsent, Err: ErrUnassigned}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	e := m.entryLocked(id, now)

	if m.needsFetchLocked(e, now) {
		m.startFetchLocked(ctx, id, e)
	}

	ret := m.resultLocked(id, e, now)
	m.metrics.request(ret.State)

	return ret
}

// Get waits for the insight of id when nothing usable is cached. Cancelling ctx only
// stops the wait.
func (m *Manager) Get(ctx context.Context, id entity.Identity) (entity.Insight, error) {
	if !id.IsAssigned() {
		return entity.Insight{}, ErrUnassigned
	}

	m.mu.Lock()

	now := m.clock.Now()
	e := m.entryLocked(id, now)

	if e.flight == nil && !m.needsFetchLocked(e, now) {
		ret := m.resultLocked(id, e, now)
		m.mu.Unlock()

		m.metrics.request(ret.State)

		return ret.Insight, ret.Err
	}

	f := m.startFetchLocked(ctx, id, e)
	m.mu.Unlock()

	m.metrics.request(StateFetching)

	select {
	case <-f.done:
		return f.insight, f.err
	case <-ctx.Done():
		return entity.Insight{}, ctx.Err()
	}
}

// Run sweeps idle entries until ctx is done.
func (m *Manager) Run(ctx context.Context, snapshots SnapshotSource) error {
	ticker := m.clock.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	m.logInfo(0, "Insight eviction started", "idleTimeout", m.config.IdleTimeout, "sweepInterval", m.config.SweepInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			m.Sweep(ctx, snapshots.CurrentSnapshot())
		}
	}
}

// Sweep drops the entries whose identity has been missing from the heartbeat table of
// the snapshot for longer than the idle timeout and returns them.
func (m *Manager) Sweep(ctx context.Context, snapshot *entity.Snapshot) []entity.Identity {
	now := m.clock.Now()

	var evicted []entity.Identity

	var published []entity.Identity

	m.mu.Lock()

	for id, e := range m.entries {
		if _, referenced := snapshot.Heartbeats[id]; referenced {
			e.lastReferenced = now

			continue
		}

		if e.flight != nil || now.Sub(e.lastReferenced) < m.config.IdleTimeout {
			continue
		}

		delete(m.entries, id)
		evicted = append(evicted, id)

		if e.insight != nil {
			published = append(published, id)
		}
	}

	size := len(m.entries)

	m.mu.Unlock()

	m.metrics.setEntries(size)

	for _, id := range published {
		m.publish(ctx, entity.InsightEvicted{Header: entity.Header{Source: sourceName, ReceivedAt: now}, Identity: id})
	}

	if len(evicted) > 0 {
		m.logInfo(1, "Evicted idle insights", "count", len(evicted))
	}

	return evicted
}

func (m *Manager) entryLocked(id entity.Identity, now time.Time) *entry {
	e, ok := m.entries[id]
	if !ok {
		e = &entry{lastReferenced: now}
		m.entries[id] = e

		m.metrics.setEntries(len(m.entries))
	}

	return e
}

func (m *Manager) isFresh(insight *entity.Insight, now time.Time) bool {
	return !insight.Stale && now.Sub(insight.FetchedAt) < m.config.TTL
}

func (m *Manager) inBackoff(e *entry, now time.Time) bool {
	return e.err != nil && now.Sub(e.failedAt) < m.config.FailureBackoff
}

func (m *Manager) needsFetchLocked(e *entry, now time.Time) bool {
	switch {
	case e.flight != nil:
		return false
	case e.insight != nil && m.isFresh(e.insight, now):
		return false
	case m.inBackoff(e, now):
		return false
	default:
		return true
	}
}

func (m *Manager) resultLocked(id entity.Identity, e *entry, now time.Time) Result {
	ret := Result{Identity: id, Pending: e.flight != nil}

	switch {
	case e.insight != nil:
		ret.Insight = *e.insight
		ret.State = StateStale

		if m.isFresh(e.insight, now) {
			ret.State = StateReady
		}
	case e.flight != nil:
		ret.State = StateFetching
	case e.err != nil:
		ret.State = StateFailed
		ret.Err = e.err
	default:
		ret.State = StateAbsent
	}

	return ret
}

// startFetchLocked returns the flight of id, starting one when none is in progress.
func (m *Manager) startFetchLocked(ctx context.Context, id entity.Identity, e *entry) *flight {
	if e.flight != nil {
		return e.flight
	}

	f := &flight{done: make(chan struct{})}
	e.flight = f

	// Callers only share the values of ctx, never its cancellation
	detached := context.WithoutCancel(ctx)

	ch := m.group.DoChan(string(id), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(detached, m.config.FetchTimeout)
		defer cancel()

		return m.fetchInsight(fetchCtx, id)
	})

	go m.complete(detached, id, f, ch)

	return f
}

// complete records the outcome of f once its fetch returned, then publishes it. The
// entry only stops being in flight here, after the fetch is over.
func (m *Manager) complete(ctx context.Context, id entity.Identity, f *flight, ch <-chan singleflight.Result) {
	res := <-ch

	var fetchErr error

	insight, ok := res.Val.(entity.Insight)
	if res.Err != nil || !ok {
		fetchErr = res.Err
		if fetchErr == nil {
			fetchErr = fmt.Errorf("unexpected fetch result %T for %s", res.Val, id)
		}
	}

	now := m.clock.Now()

	m.mu.Lock()

	e := m.entryLocked(id, now)
	if e.flight == f {
		e.flight = nil
	}

	var published *entity.Insight

	switch {
	case fetchErr == nil:
		// A shared answer keeps the time it was produced
		if insight.FetchedAt.IsZero() || insight.FetchedAt.After(now) {
			insight.FetchedAt = now
		}

		e.insight = &insight
		e.err = nil
		e.failedAt = time.Time{}

		f.insight = insight
		published = &insight
	case e.insight != nil:
		kept := *e.insight
		kept.Stale = true

		e.insight = &kept
		e.err = fetchErr
		e.failedAt = now

		f.insight = kept
		published = &kept
	default:
		e.err = fetchErr
		e.failedAt = now

		f.err = fetchErr
	}

	m.mu.Unlock()

	close(f.done)

	m.metrics.fetched(fetchErr == nil)

	if fetchErr != nil {
		m.logInfo(1, "Insight refresh failed", "identity", id, "error", fetchErr.Error(), "kept", published != nil)
	}

	if published != nil {
		m.publish(ctx, entity.InsightRefreshed{Header: entity.Header{Source: sourceName, ReceivedAt: now}, Insight: *published})
	}
}

func (m *Manager) fetchInsight(ctx context.Context, id entity.Identity) (entity.Insight, error) {
	resp, err := m.reader.FetchInsight(ctx, string(id))
	if err != nil {
		return entity.Insight{}, fmt.Errorf("failed to fetch insight of %s: %w", id, err)
	}

	return toEntity(id, resp)
}

func (m *Manager) publish(ctx context.Context, update entity.Update) {
	if m.sink == nil {
		return
	}

	err := m.sink.Process(context.WithoutCancel(ctx), update)
	if err != nil {
		m.logError(err, "Failed to publish insight update", "kind", update.Kind())
	}
}

func (m *Manager) logInfo(level int, msg string, keysAndValues ...any) {
	if m.logger == nil {
		return
	}

	m.logger.V(level).Info(msg, keysAndValues...)
}

func (m *Manager) logError(err error, msg string, keysAndValues ...any) {
	if m.logger == nil {
		return
	}

	m.logger.Error(err, msg, keysAndValues...)
}
