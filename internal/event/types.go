// Package event defines the lifecycle event model and the Bus that queues,
// batches, and dispatches events to subscribed handlers.
package event

import (
	"time"

	"github.com/spf13/cast"
)

// Phase identifies whether an event fires before or after its operation.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Valid reports whether the phase is one of the defined values.
func (p Phase) Valid() bool {
	return p == PhasePre || p == PhasePost
}

// Priority classifies how urgently an event must be processed.
// Critical events are dispatched strictly in submission order; all other
// classes carry no ordering guarantee relative to each other.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns a numeric rank for the priority, higher being more urgent.
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the priority is one of the defined values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Event is a single lifecycle occurrence. Events are immutable once created:
// the context map is copied on construction and never shared, and
// WithContextValue returns a modified copy rather than mutating in place.
type Event struct {
	// Kind identifies the event type. Convention: "category.action"
	// (e.g., "file.write", "session.start").
	Kind string
	// Phase is pre or post relative to the operation.
	Phase Phase
	// Operation names the operation the event is about.
	Operation string
	// Priority controls batching and ordering behavior.
	Priority Priority
	// Timestamp records when the event was created.
	Timestamp time.Time
	// Replayed marks events re-emitted from history.
	Replayed bool

	context map[string]any
}

// New creates an Event with the current timestamp. The context map is
// copied so later mutation by the caller cannot affect the event.
func New(kind string, phase Phase, operation string, priority Priority, context map[string]any) Event {
	if priority == "" {
		priority = PriorityMedium
	}
	return Event{
		Kind:      kind,
		Phase:     phase,
		Operation: operation,
		Priority:  priority,
		Timestamp: time.Now(),
		context:   copyContext(context),
	}
}

// Context returns a copy of the event's context map.
func (e Event) Context() map[string]any {
	return copyContext(e.context)
}

// ContextValue returns the raw context value for a key.
func (e Event) ContextValue(key string) (any, bool) {
	v, ok := e.context[key]
	return v, ok
}

// ContextString returns the context value for a key coerced to a string.
// Missing keys return the empty string.
func (e Event) ContextString(key string) string {
	return cast.ToString(e.context[key])
}

// ContextInt returns the context value for a key coerced to an int.
// Missing keys return zero.
func (e Event) ContextInt(key string) int {
	return cast.ToInt(e.context[key])
}

// ContextBool returns the context value for a key coerced to a bool.
// Missing keys return false.
func (e Event) ContextBool(key string) bool {
	return cast.ToBool(e.context[key])
}

// WithContextValue returns a copy of the event with the given key set.
// The receiver is not modified.
func (e Event) WithContextValue(key string, value any) Event {
	ctx := copyContext(e.context)
	if ctx == nil {
		ctx = make(map[string]any, 1)
	}
	ctx[key] = value
	e.context = ctx
	return e
}

// asReplay returns a copy of the event marked as a replay with a fresh
// timestamp. The original stored event is untouched.
func (e Event) asReplay() Event {
	e.context = copyContext(e.context)
	e.Timestamp = time.Now()
	e.Replayed = true
	return e
}

func copyContext(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
