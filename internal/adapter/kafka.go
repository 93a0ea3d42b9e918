package adapter

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/monx-observability/fleet-telemetry/internal/common"
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

// LogStreamProcessing turns every record of the log topic into a LogsRefreshed update.
// It is driven by a pipeline.Runner.
type LogStreamProcessing struct {
	clock clockwork.Clock
	sink  pipeline.Processing[entity.Update]
}

func NewLogStreamProcessing(clock clockwork.Clock, sink pipeline.Processing[entity.Update]) LogStreamProcessing {
	return LogStreamProcessing{
		clock: clock,
		sink:  sink,
	}
}

func (p LogStreamProcessing) Process(ctx context.Context, record repo.LogRecord) error {
	entry, err := DecodeLogRecord(record)
	if err != nil {
		return common.NewDecodeError(err, SourceLogStream, nil)
	}

	update := entity.LogsRefreshed{
		Header:  entity.Header{Source: SourceLogStream, ReceivedAt: p.clock.Now()},
		Entries: []entity.LogEntry{entry},
	}

	return p.sink.Process(ctx, update)
}
