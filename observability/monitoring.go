// Package observability aggregates runtime counters and process self-stats
// for the debug endpoint. It observes the system and never influences it.
package observability

import (
	"encoding/json"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Monitoring collects routing counters plus process RSS/CPU. All counters
// are atomic so the hot path never takes a lock.
type Monitoring struct {
	startedAt         time.Time
	connectionsOpened atomic.Int64
	connectionsClosed atomic.Int64
	messagesRouted    atomic.Int64
	messagesPersisted atomic.Int64
	persistFailures   atomic.Int64
	historyReplays    atomic.Int64
	eventsDropped     atomic.Int64
	proc              *process.Process
}

func NewMonitoring() *Monitoring {
	// Self-inspection failure is not fatal: counters still work.
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Monitoring{startedAt: time.Now().UTC(), proc: proc}
}

func (m *Monitoring) ConnectionOpened() { m.connectionsOpened.Add(1) }
func (m *Monitoring) ConnectionClosed() { m.connectionsClosed.Add(1) }
func (m *Monitoring) MessageRouted()    { m.messagesRouted.Add(1) }
func (m *Monitoring) MessagePersisted() { m.messagesPersisted.Add(1) }
func (m *Monitoring) PersistFailed()    { m.persistFailures.Add(1) }
func (m *Monitoring) HistoryReplayed()  { m.historyReplays.Add(1) }
func (m *Monitoring) EventDropped()     { m.eventsDropped.Add(1) }

// Stats is the JSON shape served by the debug endpoint.
type Stats struct {
	UptimeSeconds     float64 `json:"uptime_seconds"`
	ConnectionsOpen   int64   `json:"connections_open"`
	ConnectionsOpened int64   `json:"connections_opened"`
	MessagesRouted    int64   `json:"messages_routed"`
	MessagesPersisted int64   `json:"messages_persisted"`
	PersistFailures   int64   `json:"persist_failures"`
	HistoryReplays    int64   `json:"history_replays"`
	EventsDropped     int64   `json:"events_dropped"`
	RSSBytes          uint64  `json:"rss_bytes"`
	CPUPercent        float64 `json:"cpu_percent"`
}

func (m *Monitoring) Snapshot() Stats {
	stats := Stats{
		UptimeSeconds:     time.Since(m.startedAt).Seconds(),
		ConnectionsOpen:   m.connectionsOpened.Load() - m.connectionsClosed.Load(),
		ConnectionsOpened: m.connectionsOpened.Load(),
		MessagesRouted:    m.messagesRouted.Load(),
		MessagesPersisted: m.messagesPersisted.Load(),
		PersistFailures:   m.persistFailures.Load(),
		HistoryReplays:    m.historyReplays.Load(),
		EventsDropped:     m.eventsDropped.Load(),
	}
	if m.proc != nil {
		if mem, err := m.proc.MemoryInfo(); err == nil {
			stats.RSSBytes = mem.RSS
		}
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	}
	return stats
}

// Handler serves the current stats as JSON for GET /debug/stats.
func (m *Monitoring) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.Snapshot())
	}
}
