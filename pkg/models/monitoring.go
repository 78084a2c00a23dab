package models

import (
	"encoding/json"
	"time"
)

// MonitoringHistoryLimit caps the number of history entries kept per key.
const MonitoringHistoryLimit = 100

// MonitoringState is the current connectivity snapshot of a provider.
type MonitoringState struct {
	Key         string          `json:"key"`
	Connected   bool            `json:"connected"`
	Session     bool            `json:"session"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	LastChanged time.Time       `json:"last_changed"`
}

// MonitoringHistoryEntry is one recorded snapshot.
type MonitoringHistoryEntry struct {
	Key        string          `json:"key"`
	Connected  bool            `json:"connected"`
	Session    bool            `json:"session"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// HistoryEntry converts the state into a history record.
func (s *MonitoringState) HistoryEntry() MonitoringHistoryEntry {
	return MonitoringHistoryEntry{
		Key:        s.Key,
		Connected:  s.Connected,
		Session:    s.Session,
		Raw:        s.Raw,
		RecordedAt: s.LastChanged,
	}
}
