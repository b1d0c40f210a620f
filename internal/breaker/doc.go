// Package breaker implements a per-hook circuit breaker.
//
// Each breaker tracks dispatch outcomes in a fixed-size sliding window.
// While closed every dispatch is allowed; once the window is full and the
// failure rate reaches the configured threshold the circuit opens and
// rejects dispatches until the reset timeout elapses. It then moves to
// half-open, where a single probe decides: success closes the circuit and
// clears the window, failure reopens it with a fresh deadline.
//
// The open to half-open transition is evaluated lazily on access rather
// than by a background timer, so an idle breaker costs nothing. State
// change observers registered with OnStateChange are notified on their
// own goroutines and can never block recording.
package breaker
