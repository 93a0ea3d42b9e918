package repo

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsightUnavailable is returned when the insight backend answers without data.
var ErrInsightUnavailable = errors.New("insight unavailable")

// DecodeError is returned by readers when the remote answered with a payload that cannot
// be decoded. Payload holds the raw answer.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type AgentRecord struct {
	Name         string          `json:"name"`
	LastSeen     string          `json:"last_seen"`
	Capabilities map[string]bool `json:"capabilities"`
}

// AnomalyRecord keeps every field of the anomaly as received, candidate identity fields
// are read from it by the correlator.
type AnomalyRecord map[string]interface{}

// StreamMessage is one message of the anomaly push channel.
type StreamMessage struct {
	Type string          `json:"type"`
	Data []AnomalyRecord `json:"data"`
}

const StreamMessageTypeAnomalies = "anomalies"

type LogQuery struct {
	Query string
	Size  int
}

type LogSearchResult struct {
	Hits struct {
		Hits []LogHit `json:"hits"`
	} `json:"hits"`
}

type LogHit struct {
	Source LogRecord `json:"_source"`
}

// LogRecord is shared by the search API and the kafka log topic.
type LogRecord struct {
	Timestamp string  `json:"timestamp"`
	Level     string  `json:"level"`
	Service   string  `json:"service"`
	Message   string  `json:"message"`
	TraceID   *string `json:"trace_id,omitempty"`
}

type InsightResponse struct {
	Success bool         `json:"success"`
	Data    *InsightData `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`

	// FetchedAt is when the analysis was produced, zero when it comes straight from the
	// backend.
	FetchedAt time.Time `json:"-"`
}

type InsightData struct {
	Severity       string   `json:"severity"`
	Confidence     float64  `json:"confidence"`
	Analysis       string   `json:"analysis"`
	RootCause      string   `json:"root_cause"`
	SuggestedFixes []string `json:"suggested_fixes"`
}
