package aggregator

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

// DegradedForwarder turns adapter processing errors into SourceDegraded updates so the
// failure shows in the snapshot diagnostics.
type DegradedForwarder struct {
	sink  pipeline.Processing[entity.Update]
	clock clockwork.Clock
}

func NewDegradedForwarder(sink pipeline.Processing[entity.Update], clock clockwork.Clock) DegradedForwarder {
	return DegradedForwarder{
		sink:  sink,
		clock: clock,
	}
}

func (f DegradedForwarder) Process(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	source := ""
	if pErr.Origin != nil {
		source = pErr.Origin.Source
	}

	update := entity.SourceDegraded{
		Header:   entity.Header{Source: source, ReceivedAt: f.clock.Now()},
		Category: pErr.Category,
		Err:      pErr.Unwrap(),
	}

	err := f.sink.Process(ctx, update)
	if errors.Is(err, ErrNotRunning) {
		return nil
	}

	return err
}
