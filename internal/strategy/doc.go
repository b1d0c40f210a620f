// Package strategy coordinates how a dispatch fans out to agents.
//
// A Strategy names its participants and one of four scheduling kinds:
// parallel (concurrent fan-out), sequential (chained, each participant
// sees the previous outcome in the event context), consensus (parallel
// fan-out gated by an agreement threshold, with an optional one-shot
// fallback), and roundrobin (one participant per invocation, rotating).
//
// The Executor resolves participants against the agent roster and
// enforces the strategy timeout per participant. Agents are expected to
// honor context cancellation; an overrunning agent gets a synthesized
// timeout result and its siblings are never aborted.
package strategy
