package hook

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hookflow/hookflow/internal/errors"
	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/logging"
)

// Store owns hook definitions and their dependency graph. All access goes
// through instance methods guarded by a single mutex: registration, enable,
// disable, and unregister are serialized relative to any in-flight
// dependency traversal, so the graph and the enabled set can never be
// observed mid-mutation.
type Store struct {
	mu         sync.RWMutex
	hooks      map[string]*Hook
	dependents map[string][]string // id -> hooks that depend on it
	logger     *logging.Logger
}

// NewStore creates an empty hook store.
func NewStore(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{
		hooks:      make(map[string]*Hook),
		dependents: make(map[string][]string),
		logger:     logger.WithComponent("store"),
	}
}

// Register validates and adds a hook. It fails with a ValidationError when
// the definition is malformed, a declared dependency is not registered, or
// adding the hook would introduce a dependency cycle (the error reports the
// full cycle membership). A hook declared enabled is accepted only if all
// its dependencies are currently enabled.
func (s *Store) Register(h Hook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		return errors.NewValidationError("hook ID cannot be empty").WithField("id")
	}
	if h.Kind == "" {
		return errors.NewValidationError("hook kind cannot be empty").WithField("kind").WithValue(h.ID)
	}
	if !h.Phase.Valid() {
		return errors.NewValidationError("hook phase must be pre or post").
			WithField("phase").WithValue(string(h.Phase))
	}
	if _, exists := s.hooks[h.ID]; exists {
		return errors.NewAlreadyExistsError("hook", h.ID)
	}

	for _, depID := range h.DependsOn {
		if depID == h.ID {
			return errors.NewValidationError("hook cannot depend on itself").
				WithField("depends_on").WithValue(h.ID).
				WithCause(errors.ErrDependencyCycle)
		}
		if _, ok := s.hooks[depID]; !ok {
			return errors.NewValidationError(fmt.Sprintf("hook %q depends on unregistered hook %q", h.ID, depID)).
				WithField("depends_on").WithValue(depID).
				WithCause(errors.ErrDependencyMissing)
		}
	}

	// Probe the graph with the new edges before committing.
	deps := s.dependencyEdges()
	deps[h.ID] = append([]string(nil), h.DependsOn...)
	if cycle := detectCycle(deps); cycle != nil {
		members := cycleMembers(cycle)
		return errors.NewValidationError(fmt.Sprintf("dependency cycle: %s", strings.Join(members, " -> "))).
			WithField("depends_on").WithValue(members).
			WithCause(errors.ErrDependencyCycle)
	}

	if h.Enabled {
		for _, depID := range h.DependsOn {
			if !s.hooks[depID].Enabled {
				return errors.NewValidationError(
					fmt.Sprintf("hook %q cannot be registered enabled: dependency %q is disabled", h.ID, depID)).
					WithField("enabled").WithValue(h.ID).
					WithCause(errors.ErrHookDisabled)
			}
		}
	}

	h.Normalize()
	stored := h.clone()
	s.hooks[h.ID] = &stored
	for _, depID := range h.DependsOn {
		s.dependents[depID] = append(s.dependents[depID], h.ID)
	}

	s.logger.Info("hook registered",
		"hook_id", h.ID, "kind", h.Kind, "phase", string(h.Phase),
		"priority", h.Priority, "enabled", h.Enabled, "depends_on", h.DependsOn)
	return nil
}

// RegisterBatch validates and adds a set of hooks atomically. Hooks in the
// batch may depend on each other regardless of slice order; dependencies
// must resolve against the batch or the existing registrations. On any
// validation failure, including a dependency cycle within the batch (the
// error reports the full cycle membership, e.g. mutually dependent hooks),
// no hook from the batch is registered.
func (s *Store) RegisterBatch(hooks []Hook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]*Hook, len(hooks))
	for i := range hooks {
		h := &hooks[i]
		if h.ID == "" {
			return errors.NewValidationError("hook ID cannot be empty").WithField("id")
		}
		if h.Kind == "" {
			return errors.NewValidationError("hook kind cannot be empty").WithField("kind").WithValue(h.ID)
		}
		if !h.Phase.Valid() {
			return errors.NewValidationError("hook phase must be pre or post").
				WithField("phase").WithValue(string(h.Phase))
		}
		if _, exists := s.hooks[h.ID]; exists {
			return errors.NewAlreadyExistsError("hook", h.ID)
		}
		if _, dup := batch[h.ID]; dup {
			return errors.NewAlreadyExistsError("hook", h.ID)
		}
		batch[h.ID] = h
	}

	for id, h := range batch {
		for _, depID := range h.DependsOn {
			if _, inBatch := batch[depID]; inBatch {
				continue
			}
			if _, ok := s.hooks[depID]; !ok {
				return errors.NewValidationError(fmt.Sprintf("hook %q depends on unregistered hook %q", id, depID)).
					WithField("depends_on").WithValue(depID).
					WithCause(errors.ErrDependencyMissing)
			}
		}
	}

	deps := s.dependencyEdges()
	for id, h := range batch {
		deps[id] = append([]string(nil), h.DependsOn...)
	}
	if cycle := detectCycle(deps); cycle != nil {
		members := cycleMembers(cycle)
		return errors.NewValidationError(fmt.Sprintf("dependency cycle: %s", strings.Join(members, " -> "))).
			WithField("depends_on").WithValue(members).
			WithCause(errors.ErrDependencyCycle)
	}

	for id, h := range batch {
		if !h.Enabled {
			continue
		}
		for _, depID := range h.DependsOn {
			enabled := false
			if dep, inBatch := batch[depID]; inBatch {
				enabled = dep.Enabled
			} else {
				enabled = s.hooks[depID].Enabled
			}
			if !enabled {
				return errors.NewValidationError(
					fmt.Sprintf("hook %q cannot be registered enabled: dependency %q is disabled", id, depID)).
					WithField("enabled").WithValue(id).
					WithCause(errors.ErrHookDisabled)
			}
		}
	}

	for _, h := range batch {
		h.Normalize()
		stored := h.clone()
		s.hooks[h.ID] = &stored
		for _, depID := range h.DependsOn {
			s.dependents[depID] = append(s.dependents[depID], h.ID)
		}
		s.logger.Info("hook registered",
			"hook_id", h.ID, "kind", h.Kind, "phase", string(h.Phase),
			"priority", h.Priority, "enabled", h.Enabled, "depends_on", h.DependsOn)
	}
	return nil
}

// Unregister removes a hook and all graph edges referencing it. It is
// refused while other hooks still depend on the hook.
func (s *Store) Unregister(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hooks[id]
	if !ok {
		return errors.NewNotFoundError("hook", id)
	}
	if deps := s.dependents[id]; len(deps) > 0 {
		return errors.NewHookError(
			fmt.Sprintf("cannot unregister: %s still depended on by %s", id, strings.Join(deps, ", ")),
			errors.ErrHasDependents).WithHookID(id)
	}

	for _, depID := range h.DependsOn {
		s.dependents[depID] = remove(s.dependents[depID], id)
		if len(s.dependents[depID]) == 0 {
			delete(s.dependents, depID)
		}
	}
	delete(s.hooks, id)
	delete(s.dependents, id)

	s.logger.Info("hook unregistered", "hook_id", id)
	return nil
}

// Enable enables a hook, recursively enabling any not-yet-enabled
// dependencies first: a hook's dependencies are meaningless if inactive.
func (s *Store) Enable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enableLocked(id)
}

func (s *Store) enableLocked(id string) error {
	h, ok := s.hooks[id]
	if !ok {
		return errors.NewNotFoundError("hook", id)
	}
	if h.Enabled {
		return nil
	}
	for _, depID := range h.DependsOn {
		if err := s.enableLocked(depID); err != nil {
			return errors.Wrapf(err, "enabling dependency of %s", id)
		}
	}
	h.Enabled = true
	s.logger.Info("hook enabled", "hook_id", id)
	return nil
}

// Disable disables a hook, recursively disabling all hooks that depend on
// it first so no enabled hook is ever left with a disabled dependency.
func (s *Store) Disable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disableLocked(id)
}

func (s *Store) disableLocked(id string) error {
	h, ok := s.hooks[id]
	if !ok {
		return errors.NewNotFoundError("hook", id)
	}
	if !h.Enabled {
		return nil
	}
	for _, depID := range s.dependents[id] {
		if err := s.disableLocked(depID); err != nil {
			return errors.Wrapf(err, "disabling dependent of %s", id)
		}
	}
	h.Enabled = false
	s.logger.Info("hook disabled", "hook_id", id)
	return nil
}

// Get returns a copy of the hook with the given ID.
func (s *Store) Get(id string) (Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hooks[id]
	if !ok {
		return Hook{}, errors.NewNotFoundError("hook", id)
	}
	return h.clone(), nil
}

// Query returns copies of hooks matching the filter, sorted by descending
// priority; ties break on ID for determinism.
func (s *Store) Query(f Filter) []Hook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Hook
	for _, h := range s.hooks {
		if f.matches(*h) {
			out = append(out, h.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Match returns the enabled hooks that apply to the event in the given
// environment, sorted by descending priority.
func (s *Store) Match(evt event.Event, environment string) []Hook {
	enabled := true
	candidates := s.Query(Filter{Kind: evt.Kind, Phase: evt.Phase, Enabled: &enabled})

	var out []Hook
	for _, h := range candidates {
		if h.AppliesTo(evt, environment) {
			out = append(out, h)
		}
	}
	return out
}

// List returns copies of all registered hooks sorted by descending priority.
func (s *Store) List() []Hook {
	return s.Query(Filter{})
}

// Len returns the number of registered hooks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hooks)
}

// Dependents returns the IDs of hooks that directly depend on the given hook.
func (s *Store) Dependents(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.dependents[id]...)
}

// Dependencies returns the IDs the given hook directly depends on.
func (s *Store) Dependencies(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hooks[id]
	if !ok {
		return nil
	}
	return append([]string(nil), h.DependsOn...)
}

// ResolveOrder returns the given hook IDs topologically sorted so that
// dependencies come before dependents; hooks at the same depth order by
// descending priority. Dependencies outside the subset are ignored. A cycle
// here means the registration-time validation was bypassed and is reported
// as a ValidationError: it is an internal invariant violation, not a normal
// error path.
func (s *Store) ResolveOrder(ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subset := make(map[string]*Hook, len(ids))
	for _, id := range ids {
		h, ok := s.hooks[id]
		if !ok {
			return nil, errors.NewNotFoundError("hook", id)
		}
		subset[id] = h
	}

	// Kahn's algorithm over edges internal to the subset, draining each
	// level in priority order.
	inDegree := make(map[string]int, len(subset))
	dependents := make(map[string][]string, len(subset))
	for id := range subset {
		inDegree[id] = 0
	}
	for id, h := range subset {
		for _, depID := range h.DependsOn {
			if _, ok := subset[depID]; ok {
				inDegree[id]++
				dependents[depID] = append(dependents[depID], id)
			}
		}
	}

	var frontier []string
	for id, deg := range inDegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	order := make([]string, 0, len(subset))
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool {
			a, b := subset[frontier[i]], subset[frontier[j]]
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
			return a.ID < b.ID
		})
		order = append(order, frontier...)

		var next []string
		for _, id := range frontier {
			for _, depID := range dependents[id] {
				inDegree[depID]--
				if inDegree[depID] == 0 {
					next = append(next, depID)
				}
			}
		}
		frontier = next
	}

	if len(order) != len(subset) {
		var stuck []string
		for id, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, errors.NewValidationError(
			fmt.Sprintf("invariant violation: unresolvable dependency order among %s", strings.Join(stuck, ", "))).
			WithCause(errors.ErrDependencyCycle)
	}
	return order, nil
}

// dependencyEdges snapshots the graph as id -> direct dependencies.
func (s *Store) dependencyEdges() map[string][]string {
	deps := make(map[string][]string, len(s.hooks))
	for id, h := range s.hooks {
		deps[id] = append([]string(nil), h.DependsOn...)
	}
	return deps
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
