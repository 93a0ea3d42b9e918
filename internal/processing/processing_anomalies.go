package processing

import (
	"github.com/monx-observability/fleet-telemetry/internal/correlation"
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

// The anomaly table is replaced wholesale, an empty set clears it.
func (m *Main) processAnomalies(next *entity.Snapshot, update entity.AnomalySetReplaced) {
	anomalies := make([]entity.AnomalyEvent, 0, len(update.Events))

	for _, event := range update.Events {
		if event.Raw != nil {
			event.Identity = correlation.ResolveRaw(event.Raw)
		}

		anomalies = append(anomalies, event)
	}

	next.Anomalies = anomalies
}
