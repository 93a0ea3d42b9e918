package processing

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

func TestComputeDeadline(t *testing.T) {
	type testCase struct {
		name        string
		fakeTime    time.Time
		lateAfter   time.Duration
		expectation time.Time
	}

	cases := []testCase{
		{
			name:        "Five minutes",
			fakeTime:    time.Date(2024, 12, 25, 13, 59, 59, 0, time.UTC),
			lateAfter:   5 * time.Minute,
			expectation: time.Date(2024, 12, 25, 13, 54, 59, 0, time.UTC),
		},
		{
			name:        "Change of year",
			fakeTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			lateAfter:   time.Minute,
			expectation: time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC),
		},
		{
			name:        "Disabled",
			fakeTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			lateAfter:   0,
			expectation: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			clock := clockwork.NewFakeClockAt(c.fakeTime)

			p := CountLateData{
				clock:     clock,
				lateAfter: c.lateAfter,
			}

			deadline := p.computeDeadline()

			assert.Equal(c.expectation, deadline)
		})
	}
}

func TestCountLate(t *testing.T) {
	deadline := time.Date(2024, 12, 25, 12, 0, 0, 0, time.UTC)
	before := deadline.Add(-time.Second)
	after := deadline.Add(time.Second)

	type testCase struct {
		name        string
		update      entity.Update
		expectation int
	}

	cases := []testCase{
		{
			name: "Logs",
			update: entity.LogsRefreshed{Entries: []entity.LogEntry{
				{Timestamp: before}, {Timestamp: after}, {Timestamp: before}, {},
			}},
			expectation: 2,
		},
		{
			name: "Anomalies",
			update: entity.AnomalySetReplaced{Events: []entity.AnomalyEvent{
				{Timestamp: before}, {Timestamp: deadline},
			}},
			expectation: 1,
		},
		{
			name:        "Heartbeats are never late",
			update:      entity.HeartbeatsRefreshed{Heartbeats: []entity.Heartbeat{{LastSeen: before}}},
			expectation: 0,
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			p := CountLateData{}

			assert.Equal(t, c.expectation, p.countLate(c.update, deadline))
		})
	}
}
