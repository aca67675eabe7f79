// internal/tracking/recorder.go
//
// Downstream event sink.
//
// Context
// -------
// Persisting tracking events is the platform's job, not ours.  The serve
// command still needs something after the gate so the whole path can be
// exercised: MemoryRecorder keeps the most recent events in a ring and a
// running total, which is also what the end-to-end tests assert on.
package tracking

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/yanizio/trackgate/internal/metrics"
	"github.com/yanizio/trackgate/internal/requestinfo"
)

// Event is one accepted tracking hit.
type Event struct {
	SiteToken string         `json:"site"`
	Path      string         `json:"path"`
	UA        requestinfo.UA `json:"ua"`
	Country   string         `json:"country,omitempty"`
	IP        net.IP         `json:"ip,omitempty"`
	At        time.Time      `json:"at"`
}

// Recorder accepts events that passed the gate.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// MemoryRecorder is a bounded, concurrency-safe Recorder.
type MemoryRecorder struct {
	mu    sync.Mutex
	ring  []Event
	next  int
	full  bool
	total int
}

// NewMemoryRecorder keeps the last capacity events.  Panics on capacity < 1.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity < 1 {
		panic("tracking: capacity must be ≥1")
	}
	return &MemoryRecorder{ring: make([]Event, capacity)}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	m.ring[m.next] = ev
	m.next = (m.next + 1) % len(m.ring)
	if m.next == 0 {
		m.full = true
	}
	m.total++
	m.mu.Unlock()

	metrics.EventsRecordedTotal.Inc()
	return nil
}

// Total reports how many events were ever recorded.
func (m *MemoryRecorder) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Recent returns the retained events, oldest first.
func (m *MemoryRecorder) Recent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.full {
		return append([]Event(nil), m.ring[:m.next]...)
	}
	out := make([]Event, 0, len(m.ring))
	out = append(out, m.ring[m.next:]...)
	return append(out, m.ring[:m.next]...)
}
