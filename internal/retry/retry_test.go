package retry

import (
	"context"
	"testing"
	"time"

	"github.com/hookflow/hookflow/internal/errors"
)

func TestPolicy_DelayFor(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"fixed first", Policy{Backoff: BackoffFixed, Delay: 50 * time.Millisecond}, 1, 50 * time.Millisecond},
		{"fixed later", Policy{Backoff: BackoffFixed, Delay: 50 * time.Millisecond}, 4, 50 * time.Millisecond},
		{"linear", Policy{Backoff: BackoffLinear, Delay: 10 * time.Millisecond}, 3, 30 * time.Millisecond},
		{"exponential", Policy{Backoff: BackoffExponential, Delay: 10 * time.Millisecond}, 3, 40 * time.Millisecond},
		{"exponential capped", Policy{Backoff: BackoffExponential, Delay: time.Second, MaxDelay: 2 * time.Second}, 5, 2 * time.Second},
		{"attempt below one", Policy{Backoff: BackoffFixed, Delay: 10 * time.Millisecond}, 0, 10 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.DelayFor(tt.attempt); got != tt.want {
				t.Errorf("DelayFor(%d) = %s, want %s", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	retries, err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 || retries != 0 {
		t.Errorf("calls = %d, retries = %d; want 1, 0", calls, retries)
	}
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond, Backoff: BackoffFixed}
	calls := 0
	retries, err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.NewTimeoutError("dispatch", time.Second)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 || retries != 2 {
		t.Errorf("calls = %d, retries = %d; want 3, 2", calls, retries)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	p := Policy{MaxAttempts: 5, Delay: time.Millisecond, Backoff: BackoffFixed}
	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return errors.NewCircuitOpenError("lint-gate", time.Now().Add(time.Minute))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error should not be retried, calls = %d", calls)
	}
	if !errors.IsCircuitOpen(err) {
		t.Errorf("original error should be returned, got %v", err)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond, Backoff: BackoffFixed}
	calls := 0
	retries, err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return errors.NewTimeoutError("dispatch", time.Second)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 || retries != 2 {
		t.Errorf("calls = %d, retries = %d; want 3, 2", calls, retries)
	}
}

func TestDo_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, Delay: time.Minute, Backoff: BackoffFixed}

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(ctx context.Context) error {
			return errors.NewTimeoutError("dispatch", time.Second)
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not observe cancellation")
	}
}
