package entity

import "time"

type UpdateKind string

const (
	KindHeartbeatsRefreshed UpdateKind = "heartbeats_refreshed"
	KindAnomalySetReplaced  UpdateKind = "anomaly_set_replaced"
	KindLogsRefreshed       UpdateKind = "logs_refreshed"
	KindSourceDegraded      UpdateKind = "source_degraded"
	KindInsightRefreshed    UpdateKind = "insight_refreshed"
	KindInsightEvicted      UpdateKind = "insight_evicted"
)

// Update is one typed change emitted by an adapter and folded by the aggregator.
// The set of implementations is closed.
type Update interface {
	Kind() UpdateKind
	SourceName() string
	Received() time.Time
	isUpdate()
}

// Header carries the fields every update shares.
type Header struct {
	Source     string
	ReceivedAt time.Time
}

func (h Header) SourceName() string  { return h.Source }
func (h Header) Received() time.Time { return h.ReceivedAt }
func (Header) isUpdate()             {}

type HeartbeatsRefreshed struct {
	Header
	Heartbeats []Heartbeat
}

func (HeartbeatsRefreshed) Kind() UpdateKind { return KindHeartbeatsRefreshed }

// AnomalySetReplaced replaces the whole anomaly table, an empty set clears it.
type AnomalySetReplaced struct {
	Header
	Events []AnomalyEvent
}

func (AnomalySetReplaced) Kind() UpdateKind { return KindAnomalySetReplaced }

type LogsRefreshed struct {
	Header
	Entries []LogEntry
}

func (LogsRefreshed) Kind() UpdateKind { return KindLogsRefreshed }

type SourceDegraded struct {
	Header
	Category string
	Err      error
}

func (SourceDegraded) Kind() UpdateKind { return KindSourceDegraded }

type InsightRefreshed struct {
	Header
	Insight Insight
}

func (InsightRefreshed) Kind() UpdateKind { return KindInsightRefreshed }

type InsightEvicted struct {
	Header
	Identity Identity
}

func (InsightEvicted) Kind() UpdateKind { return KindInsightEvicted }
