package agent

import (
	"sort"
	"sync"

	"github.com/hookflow/hookflow/internal/errors"
)

// Roster is the registry agents are resolved from at dispatch time.
// Safe for concurrent use.
type Roster struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{agents: make(map[string]Agent)}
}

// Register adds an agent under its ID.
func (r *Roster) Register(a Agent) error {
	if a == nil || a.ID() == "" {
		return errors.NewValidationError("agent must have a non-empty id").WithField("id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[a.ID()]; ok {
		return errors.NewAlreadyExistsError("agent", a.ID())
	}
	r.agents[a.ID()] = a
	return nil
}

// Unregister removes the agent with the given ID.
func (r *Roster) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[id]; !ok {
		return errors.NewNotFoundError("agent", id).WithCause(errors.ErrAgentNotFound)
	}
	delete(r.agents, id)
	return nil
}

// Get returns the agent with the given ID.
func (r *Roster) Get(id string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return nil, errors.NewNotFoundError("agent", id).WithCause(errors.ErrAgentNotFound)
	}
	return a, nil
}

// Resolve maps participant IDs to agents, in order. Resolution is
// all-or-nothing: one unknown ID fails the whole lookup so a strategy
// never runs with a partial participant set.
func (r *Roster) Resolve(ids []string) ([]Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Agent, 0, len(ids))
	for _, id := range ids {
		a, ok := r.agents[id]
		if !ok {
			return nil, errors.NewNotFoundError("agent", id).WithCause(errors.ErrAgentNotFound)
		}
		out = append(out, a)
	}
	return out, nil
}

// List returns metadata for all registered agents, sorted by ID.
func (r *Roster) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.Describe())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered agents.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
