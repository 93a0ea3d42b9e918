// Package correlation resolves loosely structured telemetry records to the application
// they concern.
//
// Candidate fields are evaluated in a fixed order and the first non empty one wins:
//
//  1. the explicit identity carried by the record (application, or service for logs)
//  2. event.source
//  3. event.agent_id
//  4. agent_id
//
// Records without any candidate stay Unassigned.
package correlation

import (
	"strings"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

// Raw field names read by FromRaw.
const (
	FieldApplication = "application"
	FieldEvent       = "event"
	FieldSource      = "source"
	FieldAgentID     = "agent_id"
)

type Candidates struct {
	Explicit     string
	EventSource  string
	EventAgentID string
	AgentID      string
}

func Resolve(c Candidates) entity.Identity {
	for _, candidate := range []string{c.Explicit, c.EventSource, c.EventAgentID, c.AgentID} {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			return entity.Identity(candidate)
		}
	}

	return entity.Unassigned
}

// FromRaw extracts the candidates of a decoded anomaly record. Values which are not
// strings are ignored.
func FromRaw(raw map[string]interface{}) Candidates {
	ret := Candidates{
		Explicit: stringField(raw, FieldApplication),
		AgentID:  stringField(raw, FieldAgentID),
	}

	event, ok := raw[FieldEvent].(map[string]interface{})
	if ok {
		ret.EventSource = stringField(event, FieldSource)
		ret.EventAgentID = stringField(event, FieldAgentID)
	}

	return ret
}

// ResolveRaw is FromRaw followed by Resolve.
func ResolveRaw(raw map[string]interface{}) entity.Identity {
	return Resolve(FromRaw(raw))
}

func stringField(payload map[string]interface{}, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}

	return value
}
