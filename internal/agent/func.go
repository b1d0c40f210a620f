package agent

import (
	"context"
	"time"

	"github.com/hookflow/hookflow/internal/event"
)

// FuncAgent adapts plain functions into an Agent. Zero-value fields fall
// back to permissive defaults: a nil Handles accepts every event.
type FuncAgent struct {
	AgentID     string
	Description string
	Kinds       []string
	Handles     func(event.Event) bool
	Run         func(ctx context.Context, evt event.Event) (any, error)
}

func (f *FuncAgent) ID() string { return f.AgentID }

func (f *FuncAgent) CanHandle(evt event.Event) bool {
	if f.Handles == nil {
		return true
	}
	return f.Handles(evt)
}

func (f *FuncAgent) Execute(ctx context.Context, evt event.Event) (Result, error) {
	start := time.Now()
	meta := Meta{AgentID: f.AgentID}
	if f.Run == nil {
		return Succeeded(nil, time.Since(start), meta), nil
	}
	payload, err := f.Run(ctx, evt)
	if err != nil {
		return Failed(err, time.Since(start), meta), err
	}
	return Succeeded(payload, time.Since(start), meta), nil
}

func (f *FuncAgent) Describe() Info {
	return Info{ID: f.AgentID, Description: f.Description, Kinds: f.Kinds}
}
