package event

import (
	"sync"
	"time"
)

// HistoryFilter selects events from the history ring. Zero-valued fields
// match everything.
type HistoryFilter struct {
	// Kind matches events with this exact kind.
	Kind string
	// Phase matches events in this phase.
	Phase Phase
	// Priority matches events with this priority.
	Priority Priority
	// Operation matches events about this operation.
	Operation string
	// Since matches events recorded at or after this time.
	Since time.Time
	// Limit caps the number of returned events (0 = no cap).
	Limit int
}

func (f HistoryFilter) matches(evt Event) bool {
	if f.Kind != "" && evt.Kind != f.Kind {
		return false
	}
	if f.Phase != "" && evt.Phase != f.Phase {
		return false
	}
	if f.Priority != "" && evt.Priority != f.Priority {
		return false
	}
	if f.Operation != "" && evt.Operation != f.Operation {
		return false
	}
	if !f.Since.IsZero() && evt.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// historyRing is a fixed-size ring of the most recently dispatched events.
// When full, the oldest entry is overwritten. Stored events are never
// mutated; reads return copies.
type historyRing struct {
	mu   sync.RWMutex
	data []Event
	next int
	full bool
}

func newHistoryRing(size int) *historyRing {
	return &historyRing{data: make([]Event, size)}
}

func (r *historyRing) record(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[r.next] = evt
	r.next = (r.next + 1) % len(r.data)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns stored events most-recent-first.
func (r *historyRing) snapshot() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.data)
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + len(r.data)) % len(r.data)
		out = append(out, r.data[idx])
	}
	return out
}

// History returns events from the bounded history ring, most recent first,
// matching the filter. The returned events are copies; mutating them does
// not affect stored history.
func (b *Bus) History(f HistoryFilter) []Event {
	var out []Event
	for _, evt := range b.history.snapshot() {
		if !f.matches(evt) {
			continue
		}
		out = append(out, evt)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Replay re-emits matching historical events with refreshed timestamps and
// the Replayed marker set. Stored history entries are never mutated, and
// replayed copies are never recorded back into history, so replaying the
// same filter twice produces two independent emissions of the original
// events only. Returns the number of events re-emitted.
func (b *Bus) Replay(f HistoryFilter) int {
	matched := b.History(f)

	n := 0
	for _, evt := range matched {
		if b.Emit(evt.asReplay()) {
			n++
		}
	}
	return n
}
