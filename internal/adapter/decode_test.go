package adapter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monx-observability/fleet-telemetry/internal/adapter"
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
)

func pointer[T any](obj T) *T {
	return &obj
}

func TestValidateDate(t *testing.T) {
	type testCase struct {
		name     string
		date     string
		valid    bool
		expected time.Time
	}

	cases := []testCase{
		{
			name:     "happy path",
			date:     "2024-11-21T02:57:38.485Z",
			valid:    true,
			expected: time.Date(2024, 11, 21, 2, 57, 38, 485000000, time.UTC),
		},
		{
			name:     "offset",
			date:     "2024-11-21T04:57:38+02:00",
			valid:    true,
			expected: time.Date(2024, 11, 21, 2, 57, 38, 0, time.UTC),
		},
		{
			name:     "nanoseconds",
			date:     "2024-11-21T02:57:38.123456789Z",
			valid:    true,
			expected: time.Date(2024, 11, 21, 2, 57, 38, 123456789, time.UTC),
		},
		{
			name: "missing zone",
			date: "2024-11-21T02:57:38.485",
		},
		{
			name: "another format",
			date: "02 Jan 06 15:04 MST",
		},
		{
			name: "invalid month",
			date: "2024-13-21T02:57:38.485Z",
		},
		{
			name: "empty",
			date: "",
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			ts, err := adapter.ValidateDate(c.date)
			assert.Equal(t, c.valid, err == nil, err)

			if c.valid {
				assert.Equal(t, c.expected, ts)
			}
		})
	}
}

func TestDecodeHeartbeats(t *testing.T) {
	heartbeats, err := adapter.DecodeHeartbeats([]repo.AgentRecord{
		{Name: " checkout ", LastSeen: "2025-03-14T10:00:00Z", Capabilities: map[string]bool{"logs": true}},
		{Name: "billing", LastSeen: "2025-03-14T09:59:00.5Z"},
	})
	require.NoError(t, err)

	require.Len(t, heartbeats, 2)
	assert.Equal(t, entity.Identity("checkout"), heartbeats[0].Identity)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), heartbeats[0].LastSeen)
	assert.True(t, heartbeats[0].Capabilities["logs"])
	assert.NotNil(t, heartbeats[1].Capabilities)
}

func TestDecodeHeartbeatsDropsTheWholeSet(t *testing.T) {
	type testCase struct {
		name    string
		records []repo.AgentRecord
	}

	cases := []testCase{
		{
			name: "missing name",
			records: []repo.AgentRecord{
				{Name: "checkout", LastSeen: "2025-03-14T10:00:00Z"},
				{Name: "  ", LastSeen: "2025-03-14T10:00:00Z"},
			},
		},
		{
			name: "bad last_seen",
			records: []repo.AgentRecord{
				{Name: "checkout", LastSeen: "yesterday"},
			},
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			heartbeats, err := adapter.DecodeHeartbeats(c.records)
			require.Error(t, err)
			assert.Nil(t, heartbeats)
		})
	}
}

func TestDecodeAnomalies(t *testing.T) {
	records := []repo.AnomalyRecord{
		{
			"event":     map[string]interface{}{"source": "checkout", "agent_id": "agent-1"},
			"agent_id":  "agent-2",
			"score":     0.95,
			"reason":    "cpu",
			"algorithm": "zscore",
			"timestamp": "2025-03-14T10:00:00Z",
		},
		{
			"score":     0.0,
			"timestamp": "2025-03-14T10:00:00Z",
		},
	}

	events, err := adapter.DecodeAnomalies(records)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, entity.Identity("checkout"), events[0].Identity)
	assert.InDelta(t, 0.95, events[0].Score, 1e-9)
	assert.Equal(t, "cpu", events[0].Reason)
	assert.Equal(t, "zscore", events[0].Algorithm)
	assert.Equal(t, "agent-2", events[0].Raw["agent_id"])
	assert.Equal(t, entity.Unassigned, events[1].Identity)
}

func TestDecodeAnomaliesErrors(t *testing.T) {
	type testCase struct {
		name   string
		record repo.AnomalyRecord
	}

	cases := []testCase{
		{
			name:   "score above 1",
			record: repo.AnomalyRecord{"score": 1.5, "timestamp": "2025-03-14T10:00:00Z"},
		},
		{
			name:   "negative score",
			record: repo.AnomalyRecord{"score": -0.1, "timestamp": "2025-03-14T10:00:00Z"},
		},
		{
			name:   "score as string",
			record: repo.AnomalyRecord{"score": "0.5", "timestamp": "2025-03-14T10:00:00Z"},
		},
		{
			name:   "missing score",
			record: repo.AnomalyRecord{"timestamp": "2025-03-14T10:00:00Z"},
		},
		{
			name:   "unparsable timestamp",
			record: repo.AnomalyRecord{"score": 0.5, "timestamp": "now"},
		},
		{
			name:   "reason not a string",
			record: repo.AnomalyRecord{"score": 0.5, "timestamp": "2025-03-14T10:00:00Z", "reason": 3.0},
		},
		{
			name: "nil record",
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			valid := repo.AnomalyRecord{"score": 0.5, "timestamp": "2025-03-14T10:00:00Z", "agent_id": "a"}

			events, err := adapter.DecodeAnomalies([]repo.AnomalyRecord{valid, c.record})
			require.Error(t, err)
			assert.Nil(t, events)
		})
	}
}

func TestDecodeLogs(t *testing.T) {
	result := repo.LogSearchResult{}
	result.Hits.Hits = []repo.LogHit{
		{Source: repo.LogRecord{Timestamp: "2025-03-14T10:00:00Z", Level: "error", Service: "checkout", Message: "boom", TraceID: pointer("abc")}},
		{Source: repo.LogRecord{Timestamp: "2025-03-14T10:00:01Z", Level: "INFO", Message: "orphan"}},
	}

	entries, err := adapter.DecodeLogs(result)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, entity.LogEntry{
		Identity:  "checkout",
		Level:     "ERROR",
		Message:   "boom",
		Timestamp: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		TraceID:   "abc",
	}, entries[0])
	assert.Equal(t, entity.Unassigned, entries[1].Identity)

	result.Hits.Hits = append(result.Hits.Hits, repo.LogHit{Source: repo.LogRecord{Timestamp: "bad"}})

	entries, err = adapter.DecodeLogs(result)
	require.Error(t, err)
	assert.Nil(t, entries)
}
