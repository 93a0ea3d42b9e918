package health

import (
	"time"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

const (
	DefaultWarningAfter = 120 * time.Second
	DefaultErrorAfter   = 300 * time.Second
)

type Thresholds struct {
	WarningAfter time.Duration
	ErrorAfter   time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		WarningAfter: DefaultWarningAfter,
		ErrorAfter:   DefaultErrorAfter,
	}
}

// Evaluate maps the age of a heartbeat to a status. There is no hysteresis, a heartbeat
// close to a boundary may flap between two statuses.
func Evaluate(lastSeen, now time.Time, thresholds Thresholds) entity.HealthStatus {
	age := now.Sub(lastSeen)
	if age < 0 {
		age = 0
	}

	switch {
	case age < thresholds.WarningAfter:
		return entity.HealthHealthy
	case age < thresholds.ErrorAfter:
		return entity.HealthWarning
	default:
		return entity.HealthError
	}
}

// EvaluateHeartbeat evaluates an optional heartbeat, a missing one is an error.
func EvaluateHeartbeat(hb *entity.Heartbeat, now time.Time, thresholds Thresholds) entity.HealthStatus {
	if hb == nil {
		return entity.HealthError
	}

	return Evaluate(hb.LastSeen, now, thresholds)
}
