package processing

import (
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

// A degraded source only shows in the diagnostics, its last data stays served.
func (m *Main) processDegraded(next *entity.Snapshot, update entity.SourceDegraded) {
	sources := copyMap(next.Diagnostics.Sources)

	status := sources[update.Source]
	status.DegradedTotal++
	status.LastCategory = update.Category
	status.LastDegradedAt = m.receivedAt(update)

	if update.Err != nil {
		status.LastError = update.Err.Error()
	}

	sources[update.Source] = status
	next.Diagnostics = entity.Diagnostics{Sources: sources}
}
