package transfer

import (
	"fmt"
	"sync"
	"time"
)

// ProgressFunc receives (bytesDone, bytesTotal) after every
// acknowledged chunk. A nil ProgressFunc disables reporting.
type ProgressFunc func(done, total int64)

// EventKind labels one observable step of a receiver session.
type EventKind string

const (
	EventConnected EventKind = "connected"
	EventProgress  EventKind = "progress"
	EventReceived  EventKind = "received"
	EventFailed    EventKind = "failed"
)

// Event is pushed into the server's event channel as sessions make
// progress. Consumers that fall behind lose events rather than stall
// the session.
type Event struct {
	SessionID string
	Kind      EventKind
	FileName  string
	Path      string
	Bytes     int64
	Total     int64
	Error     string
	Time      time.Time
}

// emit delivers an event without ever blocking on a slow or absent
// consumer.
func emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	ev.Time = time.Now()
	select {
	case ch <- ev:
	default:
	}
}

// Tracker derives transfer speed and an ETA from progress updates.
// Safe for use from a progress callback running on another goroutine.
type Tracker struct {
	FileName string
	Total    int64

	mu    sync.RWMutex
	start time.Time
	done  int64
	speed float64 // bytes per second
}

// NewTracker starts tracking a transfer of total bytes.
func NewTracker(fileName string, total int64) *Tracker {
	return &Tracker{FileName: fileName, Total: total, start: time.Now()}
}

// Update records the running byte count.
func (t *Tracker) Update(done int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done = done
	if elapsed := time.Since(t.start).Seconds(); elapsed > 0 {
		t.speed = float64(done) / elapsed
	}
}

// Snapshot returns the current byte count, transfer speed and the
// estimated time remaining.
func (t *Tracker) Snapshot() (done int64, speed float64, eta time.Duration) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	done, speed = t.done, t.speed
	if speed > 0 && t.Total > done {
		eta = time.Duration(float64(t.Total-done)/speed) * time.Second
	}
	return done, speed, eta
}

// FormatBytes renders a byte count in human-readable form.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.0fh", d.Hours())
}
