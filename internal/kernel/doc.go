// Package kernel ties the coordination pipeline together.
//
// The Manager is the kernel facade. Processing one event runs the full
// pipeline: match registered hooks by kind, phase, environment, and
// context conditions; walk the matches in priority order; gate each hook
// behind its own circuit breaker; serve cache-enabled hooks from the
// result cache (stampedes suppressed with singleflight); and dispatch the
// rest through the strategy executor with the retry policy applied to
// retryable failures. Every dispatch outcome feeds the hook's breaker.
//
// Batch processing runs critical events first, strictly in submission
// order, then fans the remainder out concurrently. Throughput counters
// (EMA latency, success rate, cache hit rate, per-priority breakdown)
// are available via PerformanceMetrics.
package kernel
