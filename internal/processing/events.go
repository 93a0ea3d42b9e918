package processing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

var errUnknownUpdate = errors.New("unknown update kind")

const (
	categoryUnknownUpdate = "unknown_update"

	DefaultLogBufferSize = 100
)

// Main folds updates into the current snapshot and publishes the result.
//
// Process must only be called from one goroutine at a time, readers use Snapshot which
// is safe for concurrent use.
type Main struct {
	clock         clockwork.Clock
	logBufferSize int

	current   *entity.Snapshot
	published atomic.Pointer[entity.Snapshot]
}

func NewMain(clock clockwork.Clock, logBufferSize int) *Main {
	if logBufferSize <= 0 {
		logBufferSize = DefaultLogBufferSize
	}

	ret := &Main{
		clock:         clock,
		logBufferSize: logBufferSize,
		current:       entity.EmptySnapshot(),
	}

	ret.published.Store(ret.current)

	return ret
}

// Snapshot returns the last published snapshot.
func (m *Main) Snapshot() *entity.Snapshot {
	return m.published.Load()
}

func (m *Main) Process(ctx context.Context, update entity.Update) error {
	if update == nil {
		return pipeline.NewErrProcessingError(fmt.Errorf("%w: nil", errUnknownUpdate), categoryUnknownUpdate, nil)
	}

	// Every table of next is shared with the current snapshot until replaced
	next := *m.current

	switch u := update.(type) {
	case entity.HeartbeatsRefreshed:
		m.processHeartbeats(&next, u)
	case entity.AnomalySetReplaced:
		m.processAnomalies(&next, u)
	case entity.LogsRefreshed:
		m.processLogs(&next, u)
	case entity.SourceDegraded:
		m.processDegraded(&next, u)
	case entity.InsightRefreshed:
		m.processInsightRefreshed(&next, u)
	case entity.InsightEvicted:
		m.processInsightEvicted(&next, u)
	default:
		return pipeline.NewErrProcessingError(fmt.Errorf("%w: %T", errUnknownUpdate, update), categoryUnknownUpdate, nil)
	}

	if update.Kind() != entity.KindSourceDegraded {
		m.recordUpdate(&next, update)
	}

	next.Version = m.current.Version + 1
	next.PublishedAt = m.clock.Now()

	m.current = &next
	m.published.Store(m.current)

	return nil
}

func (m *Main) recordUpdate(next *entity.Snapshot, update entity.Update) {
	sources := copyMap(next.Diagnostics.Sources)

	status := sources[update.SourceName()]
	status.UpdatesTotal++
	status.LastUpdatedAt = m.receivedAt(update)

	sources[update.SourceName()] = status
	next.Diagnostics = entity.Diagnostics{Sources: sources}
}

func (m *Main) receivedAt(update entity.Update) time.Time {
	ret := update.Received()
	if ret.IsZero() {
		ret = m.clock.Now()
	}

	return ret
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	ret := make(map[K]V, len(in)+1)

	for k, v := range in {
		ret[k] = v
	}

	return ret
}
