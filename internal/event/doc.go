// Package event provides the lifecycle event model and a bounded,
// priority-aware event bus for the hookflow kernel.
//
// # Event Model
//
// An [Event] carries a kind ("category.action"), a pre/post [Phase], the
// operation it is about, a free-form context map, a timestamp, and a
// [Priority]. Events are immutable once created: the context map is copied
// in the constructor and [Event.WithContextValue] returns a modified copy.
//
// # Bus
//
// The [Bus] accepts events via [Bus.Emit] into a bounded queue. A
// background drain loop started with [Bus.Start] removes a bounded batch
// per tick and dispatches each event concurrently; callers that prefer to
// poll can invoke [Bus.Drain] directly instead. When the queue is full,
// the incoming event is shed and counted in [Bus.Dropped].
//
// [Bus.EmitBatch] partitions by priority: critical events are dispatched
// synchronously in submission order; everything else is enqueued with no
// ordering guarantee.
//
// Handlers are registered per kind with a priority via [Bus.Subscribe];
// wildcard handlers ([Bus.SubscribeAll]) run after exact-kind matches.
// A handler returning false stops propagation for that event. Panicking
// handlers are recovered and logged.
//
// # History and Replay
//
// Every dispatched event is recorded in a bounded most-recent-first ring.
// [Bus.History] filters it; [Bus.Replay] re-emits matches with refreshed
// timestamps and the Replayed marker, leaving stored entries untouched.
package event
