package repo

import (
	"context"

	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_repo.go

type ProcessingErrorWriter interface {
	WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error
}

type AgentReader interface {
	FetchAgents(ctx context.Context) ([]AgentRecord, error)
}

// AnomalyReader returns the full current anomaly set.
type AnomalyReader interface {
	FetchAnomalies(ctx context.Context) ([]AnomalyRecord, error)
}

type LogReader interface {
	FetchLogs(ctx context.Context, query LogQuery) (LogSearchResult, error)
}

type InsightReader interface {
	FetchInsight(ctx context.Context, identity string) (InsightResponse, error)
}

// AnomalyStream opens push subscriptions. A subscription ends on the first Next error,
// a new one has to be opened to resume.
type AnomalyStream interface {
	Subscribe(ctx context.Context) (AnomalySubscription, error)
}

type AnomalySubscription interface {
	// Next blocks until the next raw message is received.
	Next(ctx context.Context) ([]byte, error)
	Close() error
}
