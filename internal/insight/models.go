package insight

import (
	"errors"
	"time"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

type State string

const (
	StateAbsent   State = "absent"
	StateFetching State = "fetching"
	StateReady    State = "ready"
	StateStale    State = "stale"
	StateFailed   State = "failed"
)

var (
	ErrUnassigned = errors.New("insight requested for an unassigned identity")
	ErrPending    = errors.New("insight fetch pending")
)

// Result is what a caller gets back for one identity. Insight is only meaningful when
// State is ready or stale.
type Result struct {
	Identity entity.Identity
	Insight  entity.Insight
	State    State
	// Pending reports a fetch in flight for the identity.
	Pending bool
	Err     error
}

func (r Result) HasValue() bool {
	return r.State == StateReady || r.State == StateStale
}

type Config struct {
	TTL            time.Duration
	FetchTimeout   time.Duration
	FailureBackoff time.Duration
	IdleTimeout    time.Duration
	SweepInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:            30 * time.Second,
		FetchTimeout:   20 * time.Second,
		FailureBackoff: 30 * time.Second,
		IdleTimeout:    10 * time.Minute,
		SweepInterval:  time.Minute,
	}
}

type entry struct {
	insight *entity.Insight
	// flight is the fetch in progress, nil when none.
	flight *flight

	err      error
	failedAt time.Time

	// lastReferenced is the last time the identity was seen in the heartbeat table,
	// or its creation time.
	lastReferenced time.Time
}

// flight is one fetch of an identity. done is closed once the entry has been updated with
// its outcome.
type flight struct {
	done chan struct{}

	insight entity.Insight
	err     error
}
