package entity

import (
	"sort"
	"time"
)

// Snapshot is one fully merged view of the fleet. It is shared between readers and
// must never be mutated once published.
type Snapshot struct {
	Version     uint64
	PublishedAt time.Time

	Heartbeats map[Identity]Heartbeat
	Anomalies  []AnomalyEvent
	// Logs are ordered oldest first. Unassigned entries are kept under Unassigned.
	Logs        map[Identity][]LogEntry
	Insights    map[Identity]Insight
	Diagnostics Diagnostics
}

type Diagnostics struct {
	Sources map[string]SourceStatus
}

type SourceStatus struct {
	UpdatesTotal   uint64
	LastUpdatedAt  time.Time
	DegradedTotal  uint64
	LastCategory   string
	LastError      string
	LastDegradedAt time.Time
}

// IsDegraded reports whether the last thing heard from the source was a failure.
func (s SourceStatus) IsDegraded() bool {
	return !s.LastDegradedAt.IsZero() && s.LastDegradedAt.After(s.LastUpdatedAt)
}

// ApplicationView is the per application slice of a snapshot.
type ApplicationView struct {
	Identity  Identity
	Heartbeat *Heartbeat
	Anomalies []AnomalyEvent
	Logs      []LogEntry
	Insight   *Insight
}

func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Heartbeats:  map[Identity]Heartbeat{},
		Logs:        map[Identity][]LogEntry{},
		Insights:    map[Identity]Insight{},
		Diagnostics: Diagnostics{Sources: map[string]SourceStatus{}},
	}
}

// ForIdentity returns the view of one application. Unassigned data is never part of a view.
func (s *Snapshot) ForIdentity(id Identity) (ApplicationView, bool) {
	ret := ApplicationView{Identity: id}

	if !id.IsAssigned() {
		return ret, false
	}

	found := false

	if hb, ok := s.Heartbeats[id]; ok {
		ret.Heartbeat = &hb
		found = true
	}

	for _, a := range s.Anomalies {
		if a.Identity == id {
			ret.Anomalies = append(ret.Anomalies, a)
			found = true
		}
	}

	if logs, ok := s.Logs[id]; ok && len(logs) > 0 {
		ret.Logs = logs
		found = true
	}

	if in, ok := s.Insights[id]; ok {
		ret.Insight = &in
		found = true
	}

	return ret, found
}

// Identities returns every assigned identity known to the snapshot, sorted. It lists
// exactly the identities ForIdentity finds.
func (s *Snapshot) Identities() []Identity {
	seen := make(map[Identity]struct{}, len(s.Heartbeats))

	for id := range s.Heartbeats {
		seen[id] = struct{}{}
	}

	for _, a := range s.Anomalies {
		seen[a.Identity] = struct{}{}
	}

	for id, logs := range s.Logs {
		if len(logs) > 0 {
			seen[id] = struct{}{}
		}
	}

	for id := range s.Insights {
		seen[id] = struct{}{}
	}

	delete(seen, Unassigned)

	ret := make([]Identity, 0, len(seen))
	for id := range seen {
		ret = append(ret, id)
	}

	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })

	return ret
}
