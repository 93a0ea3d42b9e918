package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/monx-observability/fleet-telemetry/internal/correlation"
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
)

var (
	errMissingKey       = errors.New("missing key")
	errFieldInvalidType = errors.New("field type was not the expected one")
	errEmptyValue       = errors.New("empty value")
	errOutOfRange       = errors.New("value out of range")
)

func ExtractString(payload map[string]interface{}, key string) (string, error) {
	value, present := payload[key]
	if !present {
		return "", errMissingKey
	}

	ret, ok := value.(string)
	if !ok {
		return "", errFieldInvalidType
	}

	if strings.TrimSpace(ret) == "" {
		return "", errEmptyValue
	}

	return ret, nil
}

// ExtractOptionalString returns "" for a missing or null key.
func ExtractOptionalString(payload map[string]interface{}, key string) (string, error) {
	value, present := payload[key]
	if !present || value == nil {
		return "", nil
	}

	ret, ok := value.(string)
	if !ok {
		return "", errFieldInvalidType
	}

	return ret, nil
}

func ExtractScore(payload map[string]interface{}, key string) (float64, error) {
	value, present := payload[key]
	if !present {
		return 0, errMissingKey
	}

	ret, ok := value.(float64)
	if !ok {
		return 0, errFieldInvalidType
	}

	if ret < 0 || ret > 1 {
		return 0, fmt.Errorf("%w: %v", errOutOfRange, ret)
	}

	return ret, nil
}

// ValidateDate accepts RFC 3339 timestamps with or without fractional seconds.
func ValidateDate(date string) (time.Time, error) {
	ret, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(date))
	if err != nil {
		return ret, fmt.Errorf("failed to parse time: %w", err)
	}

	return ret.UTC(), nil
}

// DecodeHeartbeats fails on the first invalid record, a partial set is never returned.
func DecodeHeartbeats(records []repo.AgentRecord) ([]entity.Heartbeat, error) {
	ret := make([]entity.Heartbeat, 0, len(records))

	for i, record := range records {
		name := strings.TrimSpace(record.Name)
		if name == "" {
			return nil, fmt.Errorf("agent %d: name: %w", i, errEmptyValue)
		}

		lastSeen, err := ValidateDate(record.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("agent %s: last_seen: %w", name, err)
		}

		capabilities := make(map[string]bool, len(record.Capabilities))
		for k, v := range record.Capabilities {
			capabilities[k] = v
		}

		ret = append(ret, entity.Heartbeat{
			Identity:     entity.Identity(name),
			LastSeen:     lastSeen,
			Capabilities: capabilities,
		})
	}

	return ret, nil
}

// DecodeAnomalies keeps the raw record of every event, identities are resolved from it.
func DecodeAnomalies(records []repo.AnomalyRecord) ([]entity.AnomalyEvent, error) {
	ret := make([]entity.AnomalyEvent, 0, len(records))

	for i, record := range records {
		event, err := decodeAnomaly(record)
		if err != nil {
			return nil, fmt.Errorf("anomaly %d: %w", i, err)
		}

		ret = append(ret, event)
	}

	return ret, nil
}

func decodeAnomaly(record repo.AnomalyRecord) (entity.AnomalyEvent, error) {
	if record == nil {
		return entity.AnomalyEvent{}, fmt.Errorf("record: %w", errEmptyValue)
	}

	score, err := ExtractScore(record, "score")
	if err != nil {
		return entity.AnomalyEvent{}, fmt.Errorf("score: %w", err)
	}

	ts, err := ExtractString(record, "timestamp")
	if err != nil {
		return entity.AnomalyEvent{}, fmt.Errorf("timestamp: %w", err)
	}

	timestamp, err := ValidateDate(ts)
	if err != nil {
		return entity.AnomalyEvent{}, fmt.Errorf("timestamp: %w", err)
	}

	reason, err := ExtractOptionalString(record, "reason")
	if err != nil {
		return entity.AnomalyEvent{}, fmt.Errorf("reason: %w", err)
	}

	algorithm, err := ExtractOptionalString(record, "algorithm")
	if err != nil {
		return entity.AnomalyEvent{}, fmt.Errorf("algorithm: %w", err)
	}

	raw := map[string]interface{}(record)

	return entity.AnomalyEvent{
		Identity:  correlation.ResolveRaw(raw),
		Raw:       raw,
		Score:     score,
		Reason:    reason,
		Algorithm: algorithm,
		Timestamp: timestamp,
	}, nil
}

func DecodeLogRecord(record repo.LogRecord) (entity.LogEntry, error) {
	timestamp, err := ValidateDate(record.Timestamp)
	if err != nil {
		return entity.LogEntry{}, fmt.Errorf("timestamp: %w", err)
	}

	ret := entity.LogEntry{
		Identity:  correlation.Resolve(correlation.Candidates{Explicit: record.Service}),
		Level:     strings.ToUpper(strings.TrimSpace(record.Level)),
		Message:   record.Message,
		Timestamp: timestamp,
	}

	if record.TraceID != nil {
		ret.TraceID = *record.TraceID
	}

	return ret, nil
}

func DecodeLogs(result repo.LogSearchResult) ([]entity.LogEntry, error) {
	ret := make([]entity.LogEntry, 0, len(result.Hits.Hits))

	for i, hit := range result.Hits.Hits {
		entry, err := DecodeLogRecord(hit.Source)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}

		ret = append(ret, entry)
	}

	return ret, nil
}

func fetchAnomalySet(ctx context.Context, reader repo.AnomalyReader) ([]entity.AnomalyEvent, error) {
	records, err := reader.FetchAnomalies(ctx)
	if err != nil {
		return nil, err
	}

	events, err := DecodeAnomalies(records)
	if err != nil {
		return nil, newDecodeError(err, records)
	}

	return events, nil
}
