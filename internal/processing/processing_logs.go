package processing

import (
	"sort"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
)

type logKey struct {
	timestamp int64
	message   string
}

func keyOf(entry entity.LogEntry) logKey {
	return logKey{timestamp: entry.Timestamp.UnixNano(), message: entry.Message}
}

// Entries are appended to the ring buffer of their identity. Entries already buffered,
// same timestamp and message, are ignored so overlapping poll windows are harmless.
func (m *Main) processLogs(next *entity.Snapshot, update entity.LogsRefreshed) {
	if len(update.Entries) == 0 {
		return
	}

	byIdentity := make(map[entity.Identity][]entity.LogEntry)
	for _, entry := range update.Entries {
		byIdentity[entry.Identity] = append(byIdentity[entry.Identity], entry)
	}

	logs := copyMap(next.Logs)

	for identity, entries := range byIdentity {
		logs[identity] = m.appendLogs(logs[identity], entries)
	}

	next.Logs = logs
}

// appendLogs never modifies buffer, which may be shared with a published snapshot.
func (m *Main) appendLogs(buffer []entity.LogEntry, entries []entity.LogEntry) []entity.LogEntry {
	seen := make(map[logKey]struct{}, len(buffer)+len(entries))

	ret := make([]entity.LogEntry, 0, len(buffer)+len(entries))
	for _, entry := range buffer {
		seen[keyOf(entry)] = struct{}{}
		ret = append(ret, entry)
	}

	added := false

	for _, entry := range entries {
		key := keyOf(entry)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		ret = append(ret, entry)
		added = true
	}

	if !added {
		return buffer
	}

	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Timestamp.Before(ret[j].Timestamp)
	})

	if len(ret) > m.logBufferSize {
		ret = ret[len(ret)-m.logBufferSize:]
	}

	return ret
}
