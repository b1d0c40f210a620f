package event

import (
	"sync"
	"testing"
	"time"
)

func TestBus_HistoryMostRecentFirst(t *testing.T) {
	bus := NewBus()

	for _, op := range []string{"a", "b", "c"} {
		bus.Dispatch(New("x", PhasePre, op, PriorityMedium, nil))
	}

	history := bus.History(HistoryFilter{})
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	if history[0].Operation != "c" || history[2].Operation != "a" {
		t.Errorf("history should be most-recent-first, got [%s %s %s]",
			history[0].Operation, history[1].Operation, history[2].Operation)
	}
}

func TestBus_HistoryBounded(t *testing.T) {
	bus := NewBus(WithHistorySize(2))

	for _, op := range []string{"a", "b", "c"} {
		bus.Dispatch(New("x", PhasePre, op, PriorityMedium, nil))
	}

	history := bus.History(HistoryFilter{})
	if len(history) != 2 {
		t.Fatalf("expected ring to cap history at 2, got %d", len(history))
	}
	if history[0].Operation != "c" || history[1].Operation != "b" {
		t.Errorf("oldest entry should be evicted, got [%s %s]",
			history[0].Operation, history[1].Operation)
	}
}

func TestBus_HistoryFilter(t *testing.T) {
	bus := NewBus()

	bus.Dispatch(New("file.write", PhasePre, "write", PriorityHigh, nil))
	bus.Dispatch(New("file.read", PhasePost, "read", PriorityLow, nil))
	bus.Dispatch(New("file.write", PhasePost, "write", PriorityCritical, nil))

	byKind := bus.History(HistoryFilter{Kind: "file.write"})
	if len(byKind) != 2 {
		t.Errorf("kind filter: expected 2 entries, got %d", len(byKind))
	}

	byPhase := bus.History(HistoryFilter{Phase: PhasePost})
	if len(byPhase) != 2 {
		t.Errorf("phase filter: expected 2 entries, got %d", len(byPhase))
	}

	byPriority := bus.History(HistoryFilter{Priority: PriorityCritical})
	if len(byPriority) != 1 {
		t.Errorf("priority filter: expected 1 entry, got %d", len(byPriority))
	}

	limited := bus.History(HistoryFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit filter: expected 1 entry, got %d", len(limited))
	}
	if limited[0].Priority != PriorityCritical {
		t.Error("limit should keep the most recent entry")
	}
}

func TestBus_ReplayedEventsNotRecorded(t *testing.T) {
	bus := NewBus()

	bus.Dispatch(New("file.write", PhasePre, "write", PriorityHigh, nil))

	// Replay, drain the copy through dispatch, then replay again. If the
	// replayed copy were recorded, the second replay would re-emit it too.
	if n := bus.Replay(HistoryFilter{Kind: "file.write"}); n != 1 {
		t.Fatalf("first replay re-emitted %d events, want 1", n)
	}
	bus.Drain()

	if got := len(bus.History(HistoryFilter{Kind: "file.write"})); got != 1 {
		t.Fatalf("history holds %d entries after draining a replay, want 1", got)
	}
	if n := bus.Replay(HistoryFilter{Kind: "file.write"}); n != 1 {
		t.Errorf("second replay re-emitted %d events, want 1", n)
	}
}

func TestBus_ReplayTwiceIsIndependent(t *testing.T) {
	bus := NewBus()

	bus.Dispatch(New("file.write", PhasePre, "write", PriorityHigh, nil))
	stored := bus.History(HistoryFilter{Kind: "file.write"})
	originalTS := stored[0].Timestamp

	time.Sleep(time.Millisecond)

	first := bus.Replay(HistoryFilter{Kind: "file.write"})
	second := bus.Replay(HistoryFilter{Kind: "file.write"})
	if first != 1 || second != 1 {
		t.Fatalf("expected each replay to re-emit 1 event, got %d and %d", first, second)
	}

	// Two replays produce two independent queued events.
	if depth := bus.QueueDepth(); depth != 2 {
		t.Errorf("expected 2 queued replays, got %d", depth)
	}

	// Stored history retains its original timestamp and no Replayed marker.
	after := bus.History(HistoryFilter{Kind: "file.write"})
	if after[0].Timestamp != originalTS {
		t.Error("replay must not mutate stored timestamps")
	}
	if after[0].Replayed {
		t.Error("replay must not mutate the stored Replayed flag")
	}

	// Draining delivers the replayed copies with markers set.
	var mu sync.Mutex
	var replayed []Event
	bus.Subscribe("file.write", func(e Event) bool {
		mu.Lock()
		replayed = append(replayed, e)
		mu.Unlock()
		return true
	}, 0)
	bus.Drain()

	mu.Lock()
	defer mu.Unlock()

	if len(replayed) != 2 {
		t.Fatalf("expected 2 replayed deliveries, got %d", len(replayed))
	}
	for _, evt := range replayed {
		if !evt.Replayed {
			t.Error("replayed event should carry the Replayed marker")
		}
		if !evt.Timestamp.After(originalTS) {
			t.Error("replayed event should carry a refreshed timestamp")
		}
	}
}
