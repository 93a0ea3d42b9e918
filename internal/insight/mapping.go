package insight

import (
	"fmt"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
)

func toEntity(id entity.Identity, resp repo.InsightResponse) (entity.Insight, error) {
	if !resp.Success || resp.Data == nil {
		if resp.Error != "" {
			return entity.Insight{}, fmt.Errorf("%w: %s", repo.ErrInsightUnavailable, resp.Error)
		}

		return entity.Insight{}, repo.ErrInsightUnavailable
	}

	data := resp.Data

	if data.Confidence < 0 || data.Confidence > 1 {
		return entity.Insight{}, fmt.Errorf("%w: confidence %v out of [0,1]", repo.ErrInsightUnavailable, data.Confidence)
	}

	fixes := make([]string, len(data.SuggestedFixes))
	copy(fixes, data.SuggestedFixes)

	return entity.Insight{
		Identity:       id,
		Severity:       entity.ParseSeverity(data.Severity),
		Confidence:     data.Confidence,
		Analysis:       data.Analysis,
		RootCause:      data.RootCause,
		SuggestedFixes: fixes,
		FetchedAt:      resp.FetchedAt,
	}, nil
}
