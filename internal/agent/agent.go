package agent

import (
	"context"
	"time"

	"github.com/hookflow/hookflow/internal/event"
)

// Agent is a unit of work the kernel can dispatch an event to. Agents are
// registered in a Roster and referenced by hooks through their IDs.
//
// Execute must honor ctx cancellation: the dispatching strategy enforces
// deadlines by context and synthesizes a timeout result when an agent
// overruns, but it never forcibly stops the goroutine.
type Agent interface {
	// ID returns the stable identifier hooks reference this agent by.
	ID() string

	// CanHandle reports whether the agent is able to process the event.
	CanHandle(evt event.Event) bool

	// Execute processes the event and returns its result. A returned error
	// means the agent itself failed; result-level failures are expressed
	// via Result.Success and Result.Errors.
	Execute(ctx context.Context, evt event.Event) (Result, error)

	// Describe returns static metadata about the agent.
	Describe() Info
}

// Info is static metadata describing an agent's capabilities.
type Info struct {
	ID           string        `json:"id"`
	Description  string        `json:"description,omitempty"`
	Kinds        []string      `json:"kinds,omitempty"`
	TypicalDelay time.Duration `json:"typical_delay,omitempty"`
}

// Meta carries dispatch bookkeeping attached to every Result.
type Meta struct {
	HookID       string   `json:"hook_id,omitempty"`
	ExecutionID  string   `json:"execution_id,omitempty"`
	AgentID      string   `json:"agent_id,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Strategy     string   `json:"strategy,omitempty"`
	CacheHit     bool     `json:"cache_hit,omitempty"`
	Retries      int      `json:"retries,omitempty"`
	CircuitOpen  bool     `json:"circuit_open,omitempty"`
}

// Result is the outcome of dispatching an event. Elapsed is always set,
// including for fast-fail results where no agent ran. Results are never
// mutated after creation.
type Result struct {
	Success bool          `json:"success"`
	Elapsed time.Duration `json:"elapsed"`
	Payload any           `json:"payload,omitempty"`
	Errors  []error       `json:"-"`
	Meta    Meta          `json:"meta"`
}

// Failed builds an unsuccessful Result carrying err.
func Failed(err error, elapsed time.Duration, meta Meta) Result {
	r := Result{Elapsed: elapsed, Meta: meta}
	if err != nil {
		r.Errors = []error{err}
	}
	return r
}

// Succeeded builds a successful Result carrying payload.
func Succeeded(payload any, elapsed time.Duration, meta Meta) Result {
	return Result{Success: true, Elapsed: elapsed, Payload: payload, Meta: meta}
}

// Err returns the first recorded error, or nil for successful results.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}
