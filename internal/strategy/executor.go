package strategy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/hookflow/hookflow/internal/agent"
	"github.com/hookflow/hookflow/internal/errors"
	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/logging"
)

// Context keys a sequential strategy threads between participants.
const (
	ContextKeyPreviousPayload = "previous_payload"
	ContextKeyPreviousSuccess = "previous_success"
	ContextKeyPreviousAgent   = "previous_agent"
)

// AgreementFunc scores how strongly a set of results agree, as a fraction
// between 0 and 1. The executor compares the score against the strategy's
// consensus threshold.
type AgreementFunc func(results []agent.Result) float64

// MajorityAgreement is the default AgreementFunc: the size of the largest
// group of successful results sharing a payload, as a fraction of all
// participants.
func MajorityAgreement(results []agent.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	groups := make(map[string]int)
	best := 0
	for _, r := range results {
		if !r.Success {
			continue
		}
		key := fmt.Sprintf("%#v", r.Payload)
		groups[key]++
		if groups[key] > best {
			best = groups[key]
		}
	}
	return float64(best) / float64(len(results))
}

// Executor dispatches events to roster agents according to a Strategy.
// Safe for concurrent use; round-robin rotation is tracked per distinct
// participant set.
type Executor struct {
	roster    *agent.Roster
	logger    *logging.Logger
	agreement AgreementFunc

	mu      sync.Mutex
	cursors map[string]int
}

// ExecutorOption configures a new Executor.
type ExecutorOption func(*Executor)

// WithAgreement replaces the default consensus agreement function.
func WithAgreement(fn AgreementFunc) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.agreement = fn
		}
	}
}

// NewExecutor creates an executor resolving participants from roster.
func NewExecutor(roster *agent.Roster, logger *logging.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	e := &Executor{
		roster:    roster,
		logger:    logger.WithComponent("strategy"),
		agreement: MajorityAgreement,
		cursors:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch runs the strategy against the event and returns one Result per
// invoked participant. Participant resolution is all-or-nothing; a timeout
// for one participant never aborts its siblings.
func (e *Executor) Dispatch(ctx context.Context, s Strategy, evt event.Event) ([]agent.Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s = s.withDefaults()

	agents, err := e.roster.Resolve(s.Participants)
	if err != nil {
		return nil, err
	}

	switch s.Kind {
	case KindParallel:
		return e.runParallel(ctx, s, agents, evt), nil
	case KindSequential:
		return e.runSequential(ctx, s, agents, evt), nil
	case KindConsensus:
		return e.runConsensus(ctx, s, agents, evt)
	case KindRoundRobin:
		return e.runRoundRobin(ctx, s, agents, evt), nil
	default:
		return nil, errors.Wrap(errors.ErrUnknownStrategy, string(s.Kind))
	}
}

func (e *Executor) runParallel(ctx context.Context, s Strategy, agents []agent.Agent, evt event.Event) []agent.Result {
	results := make([]agent.Result, len(agents))
	p := pool.New()
	for i, a := range agents {
		p.Go(func() {
			results[i] = e.invoke(ctx, s, a, evt)
		})
	}
	p.Wait()
	return results
}

func (e *Executor) runSequential(ctx context.Context, s Strategy, agents []agent.Agent, evt event.Event) []agent.Result {
	results := make([]agent.Result, 0, len(agents))
	current := evt
	for _, a := range agents {
		res := e.invoke(ctx, s, a, current)
		results = append(results, res)

		if !res.Success && !errors.IsRetryable(res.Err()) {
			e.logger.Warn("sequential chain stopped on unrecoverable failure",
				"agent", a.ID(), "error", fmt.Sprint(res.Err()))
			break
		}

		current = current.
			WithContextValue(ContextKeyPreviousPayload, res.Payload).
			WithContextValue(ContextKeyPreviousSuccess, res.Success).
			WithContextValue(ContextKeyPreviousAgent, a.ID())
	}
	return results
}

func (e *Executor) runConsensus(ctx context.Context, s Strategy, agents []agent.Agent, evt event.Event) ([]agent.Result, error) {
	results := e.runParallel(ctx, s, agents, evt)

	score := e.agreement(results)
	if score >= s.ConsensusThreshold {
		return results, nil
	}

	e.logger.Info("consensus not reached",
		"score", score, "threshold", s.ConsensusThreshold, "participants", len(agents))

	if s.Fallback != nil {
		fb := *s.Fallback
		fb.Fallback = nil
		return e.Dispatch(ctx, fb, evt)
	}
	return results, errors.Wrapf(errors.ErrConsensusNotReached,
		"agreement %.2f below threshold %.2f", score, s.ConsensusThreshold)
}

func (e *Executor) runRoundRobin(ctx context.Context, s Strategy, agents []agent.Agent, evt event.Event) []agent.Result {
	key := strings.Join(s.Participants, ",")

	e.mu.Lock()
	idx := e.cursors[key] % len(agents)
	e.cursors[key]++
	e.mu.Unlock()

	return []agent.Result{e.invoke(ctx, s, agents[idx], evt)}
}

// invoke runs one agent under the strategy timeout. The agent is expected
// to honor ctx cancellation; when it overruns, a timeout Result is
// synthesized and the goroutine is abandoned.
func (e *Executor) invoke(ctx context.Context, s Strategy, a agent.Agent, evt event.Event) agent.Result {
	start := time.Now()
	meta := agent.Meta{
		AgentID:      a.ID(),
		ExecutionID:  uuid.NewString(),
		Participants: s.Participants,
		Strategy:     string(s.Kind),
	}

	if !a.CanHandle(evt) {
		err := errors.NewHandlerError(
			fmt.Sprintf("agent %q cannot handle event kind %q", a.ID(), evt.Kind), nil)
		return agent.Failed(err, time.Since(start), meta)
	}

	cctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	done := make(chan agent.Result, 1)
	go func() {
		res, err := a.Execute(cctx, evt)
		if err != nil && len(res.Errors) == 0 {
			res.Errors = []error{errors.NewHandlerError("agent execution failed", err)}
		}
		if err != nil {
			res.Success = false
		}
		done <- res
	}()

	select {
	case res := <-done:
		res.Meta.AgentID = a.ID()
		res.Meta.ExecutionID = meta.ExecutionID
		res.Meta.Participants = meta.Participants
		res.Meta.Strategy = meta.Strategy
		if res.Elapsed == 0 {
			res.Elapsed = time.Since(start)
		}
		return res
	case <-cctx.Done():
		err := errors.NewTimeoutError(fmt.Sprintf("agent %s", a.ID()), s.Timeout)
		return agent.Failed(err, time.Since(start), meta)
	}
}
