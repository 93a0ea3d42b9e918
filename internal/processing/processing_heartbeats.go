package processing

import (
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

// Heartbeats missing from the refreshed set are kept: their age alone reports the problem.
// A heartbeat older than the stored one for the same identity is discarded.
func (m *Main) processHeartbeats(next *entity.Snapshot, update entity.HeartbeatsRefreshed) {
	heartbeats := copyMap(next.Heartbeats)

	for _, hb := range update.Heartbeats {
		if !hb.Identity.IsAssigned() {
			continue
		}

		current, known := heartbeats[hb.Identity]
		if known && current.LastSeen.After(hb.LastSeen) {
			continue
		}

		heartbeats[hb.Identity] = hb
	}

	next.Heartbeats = heartbeats
}
