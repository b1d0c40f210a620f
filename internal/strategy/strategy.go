package strategy

import (
	"time"

	"github.com/hookflow/hookflow/internal/errors"
)

// Kind selects how participants are coordinated for one dispatch.
type Kind string

const (
	// KindParallel fans the event out to every participant concurrently.
	KindParallel Kind = "parallel"
	// KindSequential runs participants one at a time, feeding each the
	// previous participant's outcome through the event context.
	KindSequential Kind = "sequential"
	// KindConsensus fans out in parallel and accepts the outcome only if
	// enough participants agree.
	KindConsensus Kind = "consensus"
	// KindRoundRobin dispatches each invocation to exactly one
	// participant, rotating through the set.
	KindRoundRobin Kind = "roundrobin"
)

// Valid reports whether k is a known strategy kind.
func (k Kind) Valid() bool {
	switch k {
	case KindParallel, KindSequential, KindConsensus, KindRoundRobin:
		return true
	}
	return false
}

// Default strategy values.
const (
	DefaultTimeout            = 5 * time.Second
	DefaultConsensusThreshold = 0.5
)

// Strategy describes one coordination run: which agents participate, how
// they are scheduled, and what happens when consensus is not reached.
type Strategy struct {
	Kind               Kind          `mapstructure:"kind" json:"kind"`
	Participants       []string      `mapstructure:"participants" json:"participants"`
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout"`
	ConsensusThreshold float64       `mapstructure:"consensus_threshold" json:"consensus_threshold,omitempty"`

	// Fallback runs at most once when a consensus strategy falls below
	// its threshold. Fallbacks cannot nest.
	Fallback *Strategy `mapstructure:"fallback" json:"fallback,omitempty"`
}

// Validate checks the strategy is dispatchable.
func (s Strategy) Validate() error {
	if !s.Kind.Valid() {
		return errors.NewValidationError("unknown strategy kind").
			WithField("kind").
			WithValue(string(s.Kind)).
			WithCause(errors.ErrUnknownStrategy)
	}
	if len(s.Participants) == 0 {
		return errors.NewValidationError("strategy requires at least one participant").
			WithField("participants").
			WithCause(errors.ErrNoParticipants)
	}
	if s.ConsensusThreshold < 0 || s.ConsensusThreshold > 1 {
		return errors.NewValidationError("consensus threshold must be between 0 and 1").
			WithField("consensus_threshold").
			WithValue(s.ConsensusThreshold)
	}
	if s.Fallback != nil {
		if s.Fallback.Fallback != nil {
			return errors.NewValidationError("fallback strategies cannot nest").
				WithField("fallback")
		}
		if err := s.Fallback.Validate(); err != nil {
			return errors.Wrap(err, "invalid fallback strategy")
		}
	}
	return nil
}

func (s Strategy) withDefaults() Strategy {
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.Kind == KindConsensus && s.ConsensusThreshold == 0 {
		s.ConsensusThreshold = DefaultConsensusThreshold
	}
	return s
}
