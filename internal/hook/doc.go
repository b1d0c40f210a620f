// Package hook provides the hook model and the Store that owns hook
// definitions and their dependency graph.
//
// A [Hook] binds agents to an event kind and phase with a numeric priority
// and per-hook dispatch configuration (strategy, timeout, retries, cache,
// environment and context conditions). Hooks may declare dependencies on
// other hooks; the [Store] enforces that the dependency graph stays acyclic
// at registration time, using a depth-first traversal that reports the full
// cycle membership when one is found.
//
// Enablement cascades through the graph: enabling a hook first enables its
// not-yet-enabled dependencies, and disabling a hook first disables
// everything that depends on it, so an enabled hook never has a disabled
// dependency. Unregistration is refused while dependents exist.
//
// The store is the sole owner of hook state. Mutating operations are
// serialized by a single mutex and all reads return copies, so callers can
// never observe or corrupt the graph mid-mutation.
package hook
