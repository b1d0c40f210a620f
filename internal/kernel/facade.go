package kernel

import (
	"github.com/hookflow/hookflow/internal/agent"
	"github.com/hookflow/hookflow/internal/breaker"
	"github.com/hookflow/hookflow/internal/errors"
	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/hook"
)

// RegisterHook adds a hook to the store and provisions its breaker.
func (m *Manager) RegisterHook(h hook.Hook) error {
	if err := m.store.Register(h); err != nil {
		return err
	}
	m.breakerFor(h.ID)
	return nil
}

// RegisterHooks registers a batch atomically; dependencies may point at
// other hooks in the same batch.
func (m *Manager) RegisterHooks(hooks []hook.Hook) error {
	if err := m.store.RegisterBatch(hooks); err != nil {
		return err
	}
	for _, h := range hooks {
		m.breakerFor(h.ID)
	}
	return nil
}

// UnregisterHook removes a hook along with its breaker and cached results.
func (m *Manager) UnregisterHook(id string) error {
	if err := m.store.Unregister(id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.breakers, id)
	m.mu.Unlock()
	m.cache.invalidateHook(id)
	return nil
}

// EnableHook enables the hook and, recursively, its dependencies.
func (m *Manager) EnableHook(id string) error {
	return m.store.Enable(id)
}

// DisableHook disables the hook and, recursively, its dependents. Cached
// results for the hook are dropped.
func (m *Manager) DisableHook(id string) error {
	if err := m.store.Disable(id); err != nil {
		return err
	}
	m.cache.invalidateHook(id)
	return nil
}

// Hooks returns registered hooks matching the filter, priority-descending.
func (m *Manager) Hooks(f hook.Filter) []hook.Hook {
	return m.store.Query(f)
}

// Hook returns one registered hook by ID.
func (m *Manager) Hook(id string) (hook.Hook, error) {
	return m.store.Get(id)
}

// RegisterAgent adds an agent to the roster.
func (m *Manager) RegisterAgent(a agent.Agent) error {
	return m.roster.Register(a)
}

// Agents lists registered agent metadata.
func (m *Manager) Agents() []agent.Info {
	return m.roster.List()
}

// Subscribe registers a bus handler for an event kind.
func (m *Manager) Subscribe(kind string, handler event.Handler, priority int) string {
	return m.bus.Subscribe(kind, handler, priority)
}

// Unsubscribe removes a bus subscription.
func (m *Manager) Unsubscribe(id string) bool {
	return m.bus.Unsubscribe(id)
}

// Emit enqueues an event for asynchronous delivery.
func (m *Manager) Emit(evt event.Event) bool {
	return m.bus.Emit(evt)
}

// EmitBatch delivers critical events synchronously in order and enqueues
// the rest.
func (m *Manager) EmitBatch(events []event.Event) {
	m.bus.EmitBatch(events)
}

// History returns recorded events matching the filter, most recent first.
func (m *Manager) History(f event.HistoryFilter) []event.Event {
	return m.bus.History(f)
}

// Replay re-emits matching history entries and returns how many.
func (m *Manager) Replay(f event.HistoryFilter) int {
	return m.bus.Replay(f)
}

// CircuitState reports the breaker state for a hook.
func (m *Manager) CircuitState(hookID string) (breaker.State, error) {
	b, err := m.lookupBreaker(hookID)
	if err != nil {
		return "", err
	}
	return b.State(), nil
}

// CircuitMetrics reports breaker counters for a hook.
func (m *Manager) CircuitMetrics(hookID string) (breaker.Metrics, error) {
	b, err := m.lookupBreaker(hookID)
	if err != nil {
		return breaker.Metrics{}, err
	}
	return b.Metrics(), nil
}

// CircuitHealth reports breaker health and trend for a hook.
func (m *Manager) CircuitHealth(hookID string) (breaker.Health, error) {
	b, err := m.lookupBreaker(hookID)
	if err != nil {
		return breaker.Health{}, err
	}
	return b.HealthCheck(), nil
}

// ResetCircuit forces a hook's breaker closed.
func (m *Manager) ResetCircuit(hookID string) error {
	b, err := m.lookupBreaker(hookID)
	if err != nil {
		return err
	}
	b.Reset()
	return nil
}

func (m *Manager) lookupBreaker(hookID string) (*breaker.Breaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breakers[hookID]
	if !ok {
		return nil, errors.NewNotFoundError("circuit", hookID).WithCause(errors.ErrHookNotFound)
	}
	return b, nil
}
