package api

import (
	"time"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

type SnapshotResponse struct {
	Version      uint64                    `json:"version"`
	PublishedAt  time.Time                 `json:"published_at"`
	Applications []ApplicationSummary      `json:"applications"`
	Unassigned   UnassignedCounts          `json:"unassigned"`
	Sources      map[string]SourceResponse `json:"sources"`
}

type ApplicationSummary struct {
	Name      string              `json:"name"`
	Health    entity.HealthStatus `json:"health"`
	LastSeen  *time.Time          `json:"last_seen,omitempty"`
	Anomalies int                 `json:"anomalies"`
	Logs      int                 `json:"logs"`
}

type UnassignedCounts struct {
	Anomalies int `json:"anomalies"`
	Logs      int `json:"logs"`
}

type SourceResponse struct {
	Degraded       bool       `json:"degraded"`
	UpdatesTotal   uint64     `json:"updates_total"`
	LastUpdatedAt  *time.Time `json:"last_updated_at,omitempty"`
	DegradedTotal  uint64     `json:"degraded_total"`
	LastCategory   string     `json:"last_category,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastDegradedAt *time.Time `json:"last_degraded_at,omitempty"`
}

type ApplicationResponse struct {
	Name         string              `json:"name"`
	Health       entity.HealthStatus `json:"health"`
	LastSeen     *time.Time          `json:"last_seen,omitempty"`
	Capabilities map[string]bool     `json:"capabilities,omitempty"`
	Anomalies    []AnomalyResponse   `json:"anomalies"`
	Logs         []LogResponse       `json:"logs"`
	Insight      *InsightResponse    `json:"insight,omitempty"`
}

type AnomalyResponse struct {
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
	Algorithm string    `json:"algorithm"`
	Timestamp time.Time `json:"timestamp"`
}

type LogResponse struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
}

type InsightResponse struct {
	Severity       entity.Severity `json:"severity"`
	Confidence     float64         `json:"confidence"`
	Analysis       string          `json:"analysis"`
	RootCause      string          `json:"root_cause"`
	SuggestedFixes []string        `json:"suggested_fixes"`
	FetchedAt      time.Time       `json:"fetched_at"`
	Stale          bool            `json:"stale"`
}

// InsightStateResponse is returned by the insight endpoint, Insight is only set once a
// value exists.
type InsightStateResponse struct {
	Name    string           `json:"name"`
	State   string           `json:"state"`
	Pending bool             `json:"pending"`
	Error   string           `json:"error,omitempty"`
	Insight *InsightResponse `json:"insight,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

func toInsightResponse(in entity.Insight) *InsightResponse {
	fixes := in.SuggestedFixes
	if fixes == nil {
		fixes = []string{}
	}

	return &InsightResponse{
		Severity:       in.Severity,
		Confidence:     in.Confidence,
		Analysis:       in.Analysis,
		RootCause:      in.RootCause,
		SuggestedFixes: fixes,
		FetchedAt:      in.FetchedAt,
		Stale:          in.Stale,
	}
}

func toSourceResponse(status entity.SourceStatus) SourceResponse {
	return SourceResponse{
		Degraded:       status.IsDegraded(),
		UpdatesTotal:   status.UpdatesTotal,
		LastUpdatedAt:  optionalTime(status.LastUpdatedAt),
		DegradedTotal:  status.DegradedTotal,
		LastCategory:   status.LastCategory,
		LastError:      status.LastError,
		LastDegradedAt: optionalTime(status.LastDegradedAt),
	}
}
