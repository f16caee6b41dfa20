package antispam

import (
	"sync"
	"time"
)

// Tracker keeps the per-subject sliding windows in process memory.
// Entries older than the pruning horizon are dropped on every Observe
// call, so memory stays bounded by the configured windows.
type Tracker struct {
	mutex   sync.Mutex
	windows map[string][]Event
}

func NewTracker() *Tracker {
	return &Tracker{
		windows: make(map[string][]Event),
	}
}

func windowKey(guildID, subjectID string) string {
	return guildID + ":" + subjectID
}

// Observe appends $event to the subject's window, prunes everything
// older than $horizon and returns a snapshot of the remaining window.
func (t *Tracker) Observe(guildID string, event Event, horizon time.Duration) []Event {
	key := windowKey(guildID, event.SubjectID)

	t.mutex.Lock()
	defer t.mutex.Unlock()

	window := append(t.windows[key], event)

	pruned := window[:0]
	for _, entry := range window {
		if event.Timestamp.Sub(entry.Timestamp) <= horizon {
			pruned = append(pruned, entry)
		}
	}
	t.windows[key] = pruned

	snapshot := make([]Event, len(pruned))
	copy(snapshot, pruned)
	return snapshot
}

// Forget drops the subject's window, used after a punishment so the
// subject starts clean once the punishment expires.
func (t *Tracker) Forget(guildID, subjectID string) {
	t.mutex.Lock()
	delete(t.windows, windowKey(guildID, subjectID))
	t.mutex.Unlock()
}

// Size returns the number of tracked windows
func (t *Tracker) Size() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.windows)
}
