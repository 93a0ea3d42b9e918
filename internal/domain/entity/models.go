package entity

import (
	"strings"
	"time"
)

// Identity names one monitored application.
type Identity string

// Unassigned is the identity of events no candidate field could be correlated from.
const Unassigned Identity = ""

func (i Identity) IsAssigned() bool {
	return i != Unassigned
}

type Heartbeat struct {
	Identity     Identity
	LastSeen     time.Time
	Capabilities map[string]bool
}

type AnomalyEvent struct {
	Identity  Identity
	Raw       map[string]interface{}
	Score     float64
	Reason    string
	Algorithm string
	Timestamp time.Time
}

type LogEntry struct {
	Identity  Identity
	Level     string
	Message   string
	Timestamp time.Time
	TraceID   string
}

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityUnknown  Severity = "UNKNOWN"
)

// ParseSeverity is case insensitive, anything unexpected is SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch sev := Severity(strings.ToUpper(strings.TrimSpace(s))); sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return sev
	default:
		return SeverityUnknown
	}
}

type Insight struct {
	Identity       Identity
	Severity       Severity
	Confidence     float64
	Analysis       string
	RootCause      string
	SuggestedFixes []string
	FetchedAt      time.Time
	Stale          bool
}

type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthWarning HealthStatus = "warning"
	HealthError   HealthStatus = "error"
)
