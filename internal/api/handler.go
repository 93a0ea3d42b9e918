package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/health"
	"github.com/monx-observability/fleet-telemetry/internal/insight"
)

// View is the read side of the engine.
type View interface {
	CurrentSnapshot() *entity.Snapshot
	RequestInsight(ctx context.Context, id entity.Identity) insight.Result
}

// Handler serves the published snapshots as JSON. It never waits on a source.
type Handler struct {
	logger *logr.Logger

	view       View
	clock      clockwork.Clock
	thresholds health.Thresholds
}

func NewHandler(view View, clock clockwork.Clock, thresholds health.Thresholds) *Handler {
	return &Handler{
		view:       view,
		clock:      clock,
		thresholds: thresholds,
	}
}

func (h *Handler) WithLogger(logger logr.Logger) *Handler {
	h.logger = &logger

	return h
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /snapshot", h.getSnapshot)
	mux.HandleFunc("GET /applications/{name}", h.getApplication)
	mux.HandleFunc("GET /insights/{name}", h.getInsight)
}

func (h *Handler) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.view.CurrentSnapshot()
	now := h.clock.Now()

	ret := SnapshotResponse{
		Version:      snapshot.Version,
		PublishedAt:  snapshot.PublishedAt,
		Applications: []ApplicationSummary{},
		Sources:      make(map[string]SourceResponse, len(snapshot.Diagnostics.Sources)),
	}

	anomalies := make(map[entity.Identity]int)
	for _, a := range snapshot.Anomalies {
		anomalies[a.Identity]++
	}

	for _, id := range snapshot.Identities() {
		summary := ApplicationSummary{
			Name:      string(id),
			Anomalies: anomalies[id],
			Logs:      len(snapshot.Logs[id]),
		}

		hb, ok := snapshot.Heartbeats[id]
		if ok {
			summary.LastSeen = optionalTime(hb.LastSeen)
			summary.Health = health.Evaluate(hb.LastSeen, now, h.thresholds)
		} else {
			summary.Health = health.EvaluateHeartbeat(nil, now, h.thresholds)
		}

		ret.Applications = append(ret.Applications, summary)
	}

	ret.Unassigned = UnassignedCounts{
		Anomalies: anomalies[entity.Unassigned],
		Logs:      len(snapshot.Logs[entity.Unassigned]),
	}

	for name, status := range snapshot.Diagnostics.Sources {
		ret.Sources[name] = toSourceResponse(status)
	}

	h.writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
	id := entity.Identity(r.PathValue("name"))
	now := h.clock.Now()

	view, found := h.view.CurrentSnapshot().ForIdentity(id)
	if !found {
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown application"})

		return
	}

	ret := ApplicationResponse{
		Name:      string(id),
		Health:    health.EvaluateHeartbeat(view.Heartbeat, now, h.thresholds),
		Anomalies: make([]AnomalyResponse, 0, len(view.Anomalies)),
		Logs:      make([]LogResponse, 0, len(view.Logs)),
	}

	if view.Heartbeat != nil {
		ret.LastSeen = optionalTime(view.Heartbeat.LastSeen)
		ret.Capabilities = view.Heartbeat.Capabilities
	}

	for _, a := range view.Anomalies {
		ret.Anomalies = append(ret.Anomalies, AnomalyResponse{
			Score:     a.Score,
			Reason:    a.Reason,
			Algorithm: a.Algorithm,
			Timestamp: a.Timestamp,
		})
	}

	for _, l := range view.Logs {
		ret.Logs = append(ret.Logs, LogResponse{
			Level:     l.Level,
			Message:   l.Message,
			Timestamp: l.Timestamp,
			TraceID:   l.TraceID,
		})
	}

	if view.Insight != nil {
		ret.Insight = toInsightResponse(*view.Insight)
	}

	h.writeJSON(w, http.StatusOK, ret)
}

// getInsight answers 202 while the first fetch of an identity is in flight.
func (h *Handler) getInsight(w http.ResponseWriter, r *http.Request) {
	id := entity.Identity(r.PathValue("name"))

	result := h.view.RequestInsight(r.Context(), id)
	if errors.Is(result.Err, insight.ErrUnassigned) {
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: result.Err.Error()})

		return
	}

	ret := InsightStateResponse{
		Name:    string(id),
		State:   string(result.State),
		Pending: result.Pending,
	}

	if result.Err != nil {
		ret.Error = result.Err.Error()
	}

	if result.HasValue() {
		ret.Insight = toInsightResponse(result.Insight)

		h.writeJSON(w, http.StatusOK, ret)

		return
	}

	if result.Pending {
		h.writeJSON(w, http.StatusAccepted, ret)

		return
	}

	h.writeJSON(w, http.StatusBadGateway, ret)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logError(err, "Failed to write response", "status", status)
	}
}

func (h *Handler) logError(err error, msg string, keysAndValues ...any) {
	if h.logger == nil {
		return
	}

	h.logger.Error(err, msg, keysAndValues...)
}
