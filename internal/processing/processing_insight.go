package processing

import (
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

func (m *Main) processInsightRefreshed(next *entity.Snapshot, update entity.InsightRefreshed) {
	if !update.Insight.Identity.IsAssigned() {
		return
	}

	insights := copyMap(next.Insights)
	insights[update.Insight.Identity] = update.Insight

	next.Insights = insights
}

func (m *Main) processInsightEvicted(next *entity.Snapshot, update entity.InsightEvicted) {
	if _, ok := next.Insights[update.Identity]; !ok {
		return
	}

	insights := copyMap(next.Insights)
	delete(insights, update.Identity)

	next.Insights = insights
}
