package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/hookflow/hookflow/internal/agent"
	"github.com/hookflow/hookflow/internal/errors"
	"github.com/hookflow/hookflow/internal/event"
)

func testEvent() event.Event {
	return event.New("task.created", event.PhasePre, "create", "", nil)
}

func fixedAgent(id string, payload any) *agent.FuncAgent {
	return &agent.FuncAgent{
		AgentID: id,
		Run: func(ctx context.Context, evt event.Event) (any, error) {
			return payload, nil
		},
	}
}

func rosterWith(t *testing.T, agents ...agent.Agent) *agent.Roster {
	t.Helper()
	r := agent.NewRoster()
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			t.Fatalf("Register %s: %v", a.ID(), err)
		}
	}
	return r
}

func TestStrategy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Strategy
		wantErr bool
	}{
		{"valid parallel", Strategy{Kind: KindParallel, Participants: []string{"a"}}, false},
		{"unknown kind", Strategy{Kind: "broadcast", Participants: []string{"a"}}, true},
		{"no participants", Strategy{Kind: KindParallel}, true},
		{"threshold too high", Strategy{Kind: KindConsensus, Participants: []string{"a"}, ConsensusThreshold: 1.5}, true},
		{"threshold negative", Strategy{Kind: KindConsensus, Participants: []string{"a"}, ConsensusThreshold: -0.1}, true},
		{
			"valid fallback",
			Strategy{
				Kind: KindConsensus, Participants: []string{"a"}, ConsensusThreshold: 0.7,
				Fallback: &Strategy{Kind: KindSequential, Participants: []string{"a"}},
			},
			false,
		},
		{
			"nested fallback",
			Strategy{
				Kind: KindConsensus, Participants: []string{"a"}, ConsensusThreshold: 0.7,
				Fallback: &Strategy{
					Kind: KindSequential, Participants: []string{"a"},
					Fallback: &Strategy{Kind: KindParallel, Participants: []string{"a"}},
				},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExecutor_UnknownParticipant(t *testing.T) {
	e := NewExecutor(rosterWith(t, fixedAgent("a", "ok")), nil)

	_, err := e.Dispatch(context.Background(), Strategy{
		Kind:         KindParallel,
		Participants: []string{"a", "ghost"},
	}, testEvent())
	if !errors.Is(err, errors.ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestExecutor_Parallel(t *testing.T) {
	e := NewExecutor(rosterWith(t,
		fixedAgent("a", "ra"), fixedAgent("b", "rb"), fixedAgent("c", "rc")), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:         KindParallel,
		Participants: []string{"a", "b", "c"},
	}, testEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"ra", "rb", "rc"} {
		if !results[i].Success || results[i].Payload != want {
			t.Errorf("results[%d] = %+v, want payload %q", i, results[i], want)
		}
		if results[i].Meta.ExecutionID == "" {
			t.Errorf("results[%d] missing execution id", i)
		}
		if results[i].Meta.Strategy != "parallel" {
			t.Errorf("results[%d].Meta.Strategy = %q", i, results[i].Meta.Strategy)
		}
	}
}

func TestExecutor_ParallelTimeoutIsolated(t *testing.T) {
	slow := &agent.FuncAgent{
		AgentID: "slow",
		Run: func(ctx context.Context, evt event.Event) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "late", nil
			}
		},
	}
	e := NewExecutor(rosterWith(t, fixedAgent("fast", "ok"), slow), nil)

	start := time.Now()
	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:         KindParallel,
		Participants: []string{"fast", "slow"},
		Timeout:      50 * time.Millisecond,
	}, testEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("dispatch did not return by the deadline")
	}

	if !results[0].Success {
		t.Error("fast participant should succeed despite the slow sibling")
	}
	if results[1].Success {
		t.Error("slow participant should fail")
	}
	var te *errors.TimeoutError
	if !errors.As(results[1].Err(), &te) {
		t.Errorf("slow participant error = %v, want TimeoutError", results[1].Err())
	}
	if results[1].Elapsed <= 0 {
		t.Error("synthesized result must carry a valid elapsed time")
	}
}

func TestExecutor_SequentialThreadsContext(t *testing.T) {
	var seen []any
	first := fixedAgent("first", "p1")
	second := &agent.FuncAgent{
		AgentID: "second",
		Run: func(ctx context.Context, evt event.Event) (any, error) {
			prev, _ := evt.ContextValue(ContextKeyPreviousPayload)
			seen = append(seen, prev)
			seen = append(seen, evt.ContextString(ContextKeyPreviousAgent))
			return "p2", nil
		},
	}
	e := NewExecutor(rosterWith(t, first, second), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:         KindSequential,
		Participants: []string{"first", "second"},
	}, testEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if len(seen) != 2 || seen[0] != "p1" || seen[1] != "first" {
		t.Errorf("second participant saw %v, want [p1 first]", seen)
	}
}

func TestExecutor_SequentialStopsOnUnrecoverable(t *testing.T) {
	failing := &agent.FuncAgent{
		AgentID: "gate",
		Run: func(ctx context.Context, evt event.Event) (any, error) {
			return nil, errors.NewValidationError("bad input")
		},
	}
	invoked := false
	after := &agent.FuncAgent{
		AgentID: "after",
		Run: func(ctx context.Context, evt event.Event) (any, error) {
			invoked = true
			return "ok", nil
		},
	}
	e := NewExecutor(rosterWith(t, failing, after), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:         KindSequential,
		Participants: []string{"gate", "after"},
	}, testEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("chain should stop after the unrecoverable failure, got %d results", len(results))
	}
	if invoked {
		t.Error("downstream participant must not run after an unrecoverable failure")
	}
}

func TestExecutor_SequentialContinuesOnRetryable(t *testing.T) {
	flaky := &agent.FuncAgent{
		AgentID: "flaky",
		Run: func(ctx context.Context, evt event.Event) (any, error) {
			return nil, errors.NewTimeoutError("probe", time.Second)
		},
	}
	e := NewExecutor(rosterWith(t, flaky, fixedAgent("after", "ok")), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:         KindSequential,
		Participants: []string{"flaky", "after"},
	}, testEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("retryable failure should not stop the chain, got %d results", len(results))
	}
	if !results[1].Success {
		t.Error("downstream participant should still run")
	}
}

func TestExecutor_ConsensusReached(t *testing.T) {
	e := NewExecutor(rosterWith(t,
		fixedAgent("a", "yes"), fixedAgent("b", "yes"), fixedAgent("c", "yes"),
		fixedAgent("d", "yes"), fixedAgent("e", "no")), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:               KindConsensus,
		Participants:       []string{"a", "b", "c", "d", "e"},
		ConsensusThreshold: 0.7,
	}, testEvent())
	if err != nil {
		t.Fatalf("4 of 5 agreeing should clear a 0.7 threshold: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("got %d results, want 5", len(results))
	}
}

func TestExecutor_ConsensusNotReachedWithoutFallback(t *testing.T) {
	e := NewExecutor(rosterWith(t,
		fixedAgent("a", "yes"), fixedAgent("b", "yes"), fixedAgent("c", "no"),
		fixedAgent("d", "maybe"), fixedAgent("e", "never")), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:               KindConsensus,
		Participants:       []string{"a", "b", "c", "d", "e"},
		ConsensusThreshold: 0.7,
	}, testEvent())
	if !errors.Is(err, errors.ErrConsensusNotReached) {
		t.Fatalf("expected ErrConsensusNotReached, got %v", err)
	}
	if len(results) != 5 {
		t.Errorf("non-consensus should still return all results, got %d", len(results))
	}
}

func TestExecutor_ConsensusFallsBack(t *testing.T) {
	calls := 0
	arbiter := &agent.FuncAgent{
		AgentID: "arbiter",
		Run: func(ctx context.Context, evt event.Event) (any, error) {
			calls++
			return "ruling", nil
		},
	}
	e := NewExecutor(rosterWith(t,
		fixedAgent("a", "yes"), fixedAgent("b", "yes"), fixedAgent("c", "no"),
		fixedAgent("d", "maybe"), fixedAgent("e", "never"), arbiter), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:               KindConsensus,
		Participants:       []string{"a", "b", "c", "d", "e"},
		ConsensusThreshold: 0.7,
		Fallback:           &Strategy{Kind: KindSequential, Participants: []string{"arbiter"}},
	}, testEvent())
	if err != nil {
		t.Fatalf("fallback should absorb the non-consensus: %v", err)
	}
	if calls != 1 {
		t.Errorf("fallback ran %d times, want exactly 1", calls)
	}
	if len(results) != 1 || results[0].Payload != "ruling" {
		t.Errorf("expected the fallback result, got %v", results)
	}
}

func TestExecutor_RoundRobinDistribution(t *testing.T) {
	counts := make(map[string]int)
	mk := func(id string) *agent.FuncAgent {
		return &agent.FuncAgent{
			AgentID: id,
			Run: func(ctx context.Context, evt event.Event) (any, error) {
				counts[id]++
				return id, nil
			},
		}
	}
	e := NewExecutor(rosterWith(t, mk("a"), mk("b"), mk("c")), nil)

	s := Strategy{Kind: KindRoundRobin, Participants: []string{"a", "b", "c"}}
	for i := 0; i < 20; i++ {
		results, err := e.Dispatch(context.Background(), s, testEvent())
		if err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
		if len(results) != 1 {
			t.Fatalf("round-robin must invoke exactly one participant, got %d", len(results))
		}
	}

	for _, id := range []string{"a", "b", "c"} {
		if counts[id] < 6 || counts[id] > 7 {
			t.Errorf("participant %s chosen %d times, want 6 or 7", id, counts[id])
		}
	}
}

func TestExecutor_CannotHandleFails(t *testing.T) {
	picky := &agent.FuncAgent{
		AgentID: "picky",
		Handles: func(evt event.Event) bool { return evt.Kind == "other.kind" },
	}
	e := NewExecutor(rosterWith(t, picky), nil)

	results, err := e.Dispatch(context.Background(), Strategy{
		Kind:         KindParallel,
		Participants: []string{"picky"},
	}, testEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Success {
		t.Error("unhandleable event should produce a failed result")
	}
}

func TestMajorityAgreement(t *testing.T) {
	ok := func(p any) agent.Result { return agent.Result{Success: true, Payload: p} }
	bad := agent.Result{Success: false, Payload: "yes"}

	tests := []struct {
		name    string
		results []agent.Result
		want    float64
	}{
		{"empty", nil, 0},
		{"unanimous", []agent.Result{ok("y"), ok("y")}, 1},
		{"split", []agent.Result{ok("y"), ok("n")}, 0.5},
		{"failures excluded", []agent.Result{ok("yes"), bad, bad, bad}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MajorityAgreement(tt.results); got != tt.want {
				t.Errorf("MajorityAgreement = %f, want %f", got, tt.want)
			}
		})
	}
}
