package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/monx-observability/fleet-telemetry/internal/aggregator"
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/health"
	"github.com/monx-observability/fleet-telemetry/internal/insight"
)

// Task is one long running part of the engine, it returns once ctx is done.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Engine is what the view layer talks to: it only ever hands out published snapshots
// and insight results.
type Engine struct {
	logger *logr.Logger

	clock      clockwork.Clock
	thresholds health.Thresholds

	aggregator *aggregator.Aggregator
	insights   *insight.Manager

	tasks []Task
}

func New(clock clockwork.Clock, thresholds health.Thresholds, agg *aggregator.Aggregator, insights *insight.Manager) *Engine {
	return &Engine{
		clock:      clock,
		thresholds: thresholds,
		aggregator: agg,
		insights:   insights,
	}
}

func (e *Engine) WithLogger(logger logr.Logger) *Engine {
	e.logger = &logger

	return e
}

// WithTask registers a source adapter, or any other task, started with the engine.
func (e *Engine) WithTask(name string, run func(ctx context.Context) error) *Engine {
	e.tasks = append(e.tasks, Task{Name: name, Run: run})

	return e
}

// CurrentSnapshot never blocks.
func (e *Engine) CurrentSnapshot() *entity.Snapshot {
	return e.aggregator.CurrentSnapshot()
}

// RequestInsight never blocks, it may start a background fetch.
func (e *Engine) RequestInsight(ctx context.Context, id entity.Identity) insight.Result {
	return e.insights.Request(ctx, id)
}

// Health evaluates the heartbeat of id in the current snapshot.
func (e *Engine) Health(id entity.Identity) (entity.HealthStatus, bool) {
	hb, ok := e.CurrentSnapshot().Heartbeats[id]
	if !ok {
		return entity.HealthError, false
	}

	return health.Evaluate(hb.LastSeen, e.clock.Now(), e.thresholds), true
}

// Start runs the aggregator, the insight eviction and every task until ctx is done or
// one of them fails. Tasks are cancelled as a unit.
func (e *Engine) Start(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return e.aggregator.Run(ctx)
	})

	group.Go(func() error {
		return e.insights.Run(ctx, e)
	})

	for _, task := range e.tasks {
		task := task

		group.Go(func() error {
			e.logInfo(1, "Starting task", "task", task.Name)

			err := task.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s failed: %w", task.Name, err)
			}

			e.logInfo(1, "Task stopped", "task", task.Name)

			return nil
		})
	}

	return group.Wait()
}

func (e *Engine) logInfo(level int, msg string, keysAndValues ...any) {
	if e.logger == nil {
		return
	}

	e.logger.V(level).Info(msg, keysAndValues...)
}
