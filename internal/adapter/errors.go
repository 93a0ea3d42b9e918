package adapter

import (
	"encoding/json"
	"errors"

	"github.com/monx-observability/fleet-telemetry/internal/common"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

// Source names, reported in diagnostics and metrics.
const (
	SourceAgents        = "agents"
	SourceLogs          = "logs"
	SourceAnomalies     = "anomalies"
	SourceAnomalyStream = "anomaly_stream"
	SourceLogStream     = "log_stream"
)

// classify maps a fetch failure onto the decode or transport category.
func classify(err error, source string) pipeline.ErrProcessingError {
	var decodeErr *repo.DecodeError
	if errors.As(err, &decodeErr) {
		return common.NewDecodeError(err, source, decodeErr.Payload)
	}

	return common.NewTransportError(err, source)
}

// newDecodeError keeps what was received so it can be dead lettered.
func newDecodeError(err error, received any) error {
	payload, mErr := json.Marshal(received)
	if mErr != nil {
		payload = nil
	}

	return &repo.DecodeError{Payload: payload, Err: err}
}
