package twitter

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastPolicy keeps the exponential schedule but collapses the waits so
// tests finish in milliseconds.
var fastPolicy = Policy{BaseDelay: time.Millisecond, Factor: 2, MaxAttempts: 3}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, transientf("flaky upstream")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsTransient(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, transientf("still down")
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != fastPolicy.MaxAttempts {
		t.Errorf("calls = %d, want %d", calls, fastPolicy.MaxAttempts)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %T, want *ExhaustedError", err)
	}
	if exhausted.Attempts != fastPolicy.MaxAttempts {
		t.Errorf("Attempts = %d, want %d", exhausted.Attempts, fastPolicy.MaxAttempts)
	}
	if !errors.Is(err, ErrTransientUpstream) {
		t.Error("exhaustion should still unwrap to the transient sentinel")
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, permanentf("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (permanent must not retry)", calls)
	}
	if !IsPermanentUpstream(err) {
		t.Errorf("error should stay permanent, got %v", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Error("permanent failure must not be wrapped as exhaustion")
	}
}

func TestRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Retry(ctx, Policy{BaseDelay: time.Hour, Factor: 2, MaxAttempts: 3}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, transientf("transient before cancel")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancel must stop the schedule)", calls)
	}
}

func TestPolicyTiers(t *testing.T) {
	if PolicyCritical.MaxAttempts != PolicyNormal.MaxAttempts+1 {
		t.Errorf("critical tier should get one extra attempt: critical=%d normal=%d",
			PolicyCritical.MaxAttempts, PolicyNormal.MaxAttempts)
	}
	if PolicyCritical.BaseDelay != PolicyNormal.BaseDelay || PolicyCritical.Factor != PolicyNormal.Factor {
		t.Error("both tiers should share the same delay schedule")
	}
}
