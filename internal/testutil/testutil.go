// Package testutil provides testing utilities for hookflow tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hookflow/hookflow/internal/agent"
	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/logging"
)

// NewTestLogger returns a logger writing into the test's temporary
// directory so log output never leaks between tests.
func NewTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.NewLogger(t.TempDir(), "debug")
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// StubAgent is a configurable agent for tests. It records every event it
// executes and is safe for concurrent use.
type StubAgent struct {
	AgentID string
	// Payload is returned on success.
	Payload any
	// Err, when set, fails every execution.
	Err error
	// Delay is slept (honoring ctx) before answering.
	Delay time.Duration

	mu    sync.Mutex
	seen  []event.Event
	calls int
}

func (s *StubAgent) ID() string { return s.AgentID }

func (s *StubAgent) CanHandle(event.Event) bool { return true }

func (s *StubAgent) Execute(ctx context.Context, evt event.Event) (agent.Result, error) {
	start := time.Now()

	s.mu.Lock()
	s.calls++
	s.seen = append(s.seen, evt)
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return agent.Failed(ctx.Err(), time.Since(start), agent.Meta{AgentID: s.AgentID}), ctx.Err()
		case <-time.After(s.Delay):
		}
	}

	if s.Err != nil {
		return agent.Failed(s.Err, time.Since(start), agent.Meta{AgentID: s.AgentID}), s.Err
	}
	return agent.Succeeded(s.Payload, time.Since(start), agent.Meta{AgentID: s.AgentID}), nil
}

func (s *StubAgent) Describe() agent.Info {
	return agent.Info{ID: s.AgentID, Description: "test stub"}
}

// Calls returns how many times the stub was executed.
func (s *StubAgent) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Seen returns a copy of the events the stub has executed.
func (s *StubAgent) Seen() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.seen...)
}

// Eventually polls cond until it returns true or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
