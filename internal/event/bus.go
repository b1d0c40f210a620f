package event

import (
	"context"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/hookflow/hookflow/internal/logging"
)

// Handler processes a dispatched event. The return value controls
// propagation: returning false stops further handlers for that event.
type Handler func(Event) bool

const (
	defaultQueueSize   = 256
	defaultBatchSize   = 10
	defaultDrainTick   = 10 * time.Millisecond
	defaultHistorySize = 100
)

// subscription is a registered handler for an event kind.
type subscription struct {
	id       string
	kind     string
	priority int
	handler  Handler
}

// Bus queues, batches, and dispatches events to subscribed handlers.
//
// Emit enqueues into a bounded queue; a background drain loop (Start/Stop)
// removes up to batchSize events per tick and dispatches each concurrently.
// When the queue is full the event is dropped with a warning: load shedding
// is deliberate backpressure, not an error. All state is per-instance so
// multiple independent buses can coexist in one process.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription // kind -> subscriptions, priority-descending

	queue   chan Event
	history *historyRing
	logger  *logging.Logger

	batchSize int
	drainTick time.Duration

	dropped   atomic.Uint64
	delivered atomic.Uint64

	lifecycle sync.Mutex
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the bounded queue capacity.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan Event, n)
		}
	}
}

// WithBatchSize sets how many events one drain tick removes at most.
func WithBatchSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithDrainTick sets the interval between drain passes.
func WithDrainTick(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.drainTick = d
		}
	}
}

// WithHistorySize sets the capacity of the history ring.
func WithHistorySize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.history = newHistoryRing(n)
		}
	}
}

// WithLogger sets the logger used for warnings and handler panics.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l.WithComponent("bus")
		}
	}
}

// NewBus creates a Bus with bounded queue and history defaults.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:      make(map[string][]subscription),
		queue:     make(chan Event, defaultQueueSize),
		history:   newHistoryRing(defaultHistorySize),
		logger:    logging.NopLogger().WithComponent("bus"),
		batchSize: defaultBatchSize,
		drainTick: defaultDrainTick,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for a specific event kind. Handlers for a
// kind are kept sorted by descending priority; ties preserve registration
// order. Returns a subscription ID for Unsubscribe.
func (b *Bus) Subscribe(kind string, handler Handler, priority int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscription{
		id:       uuid.NewString(),
		kind:     kind,
		priority: priority,
		handler:  handler,
	}

	subs := append(b.subs[kind], sub)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].priority > subs[j].priority
	})
	b.subs[kind] = subs
	return sub.id
}

// SubscribeAll registers a wildcard handler called for every event kind,
// after all exact-kind handlers.
func (b *Bus) SubscribeAll(handler Handler, priority int) string {
	return b.Subscribe("*", handler, priority)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				b.subs[kind] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subs {
		count += len(subs)
	}
	return count
}

// Emit enqueues an event for asynchronous dispatch. If the queue is full
// the event is shed, counted in Dropped, and false is returned.
func (b *Bus) Emit(evt Event) bool {
	select {
	case b.queue <- evt:
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn("event queue full, shedding event",
			"kind", evt.Kind, "priority", string(evt.Priority), "dropped_total", b.dropped.Load())
		return false
	}
}

// EmitBatch groups events by priority: the critical group is dispatched
// synchronously, preserving submission order end-to-end; all other groups
// are enqueued for concurrent dispatch with no ordering guarantee relative
// to each other.
func (b *Bus) EmitBatch(events []Event) {
	var rest []Event
	for _, evt := range events {
		if evt.Priority == PriorityCritical {
			b.Dispatch(evt)
		} else {
			rest = append(rest, evt)
		}
	}
	for _, evt := range rest {
		b.Emit(evt)
	}
}

// Start launches the background drain loop. The loop runs until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.started {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.started = true

	go b.drainLoop(ctx)
}

// Stop halts the drain loop and waits for it to exit. Events left in the
// queue remain queued; a subsequent Start resumes draining them.
// Stop is safe to call without a prior Start.
func (b *Bus) Stop() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if !b.started {
		return
	}
	b.cancel()
	<-b.done
	b.started = false
}

// drainLoop periodically drains a batch from the queue.
func (b *Bus) drainLoop(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.drainTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Drain()
		}
	}
}

// Drain removes up to batchSize events from the queue and dispatches each
// as its own concurrent task, joining before returning. It is exported so
// callers that do not run the background loop can pump the bus themselves.
// Returns the number of events dispatched.
func (b *Bus) Drain() int {
	p := pool.New()
	n := 0
	for n < b.batchSize {
		select {
		case evt := <-b.queue:
			n++
			p.Go(func() {
				b.Dispatch(evt)
			})
		default:
			p.Wait()
			return n
		}
	}
	p.Wait()
	return n
}

// Dispatch synchronously delivers one event to its capable handlers:
// exact-kind handlers in priority order, then wildcard handlers. A handler
// returning false stops further propagation for that event. The event is
// recorded into history before delivery; replayed events are delivered but
// not re-recorded, so repeated replays never amplify each other.
func (b *Bus) Dispatch(evt Event) {
	if !evt.Replayed {
		b.history.record(evt)
	}
	b.delivered.Add(1)

	b.mu.RLock()
	exact := make([]subscription, len(b.subs[evt.Kind]))
	copy(exact, b.subs[evt.Kind])
	wildcard := make([]subscription, len(b.subs["*"]))
	copy(wildcard, b.subs["*"])
	b.mu.RUnlock()

	for _, sub := range exact {
		if !b.safeCall(sub, evt) {
			return
		}
	}
	for _, sub := range wildcard {
		if !b.safeCall(sub, evt) {
			return
		}
	}
}

// safeCall invokes a handler and recovers from any panics. A panicking
// handler counts as allowing propagation so one misbehaving subscriber
// cannot silence the rest.
func (b *Bus) safeCall(sub subscription, evt Event) (propagate bool) {
	defer func() {
		if r := recover(); r != nil {
			propagate = true
			b.logger.Error("event handler panicked",
				"kind", evt.Kind, "subscription", sub.id, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return sub.handler(evt)
}

// QueueDepth returns the number of events currently waiting in the queue.
func (b *Bus) QueueDepth() int {
	return len(b.queue)
}

// Dropped returns the total number of events shed because the queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Delivered returns the total number of events dispatched to handlers.
func (b *Bus) Delivered() uint64 {
	return b.delivered.Load()
}
