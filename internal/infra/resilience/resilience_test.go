package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if callCount != 3 {
		t.Errorf("expected 3 attempts, got %d", callCount)
	}
}

func TestRetryWithBackoff_StopsOnPermanent(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}

	callCount := 0
	notFound := &domain.ErrNotFound{Resource: "user", ID: "u1"}
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return resilience.Permanent(notFound)
	})

	if callCount != 1 {
		t.Errorf("expected a single attempt, got %d", callCount)
	}
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound to stay reachable, got %v", err)
	}
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestCall_UnwrapsPermanent(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", zap.NewNop())
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}

	err := resilience.Call(context.Background(), cb, cfg, "store", func() error {
		return resilience.Permanent(&domain.ErrNotFound{Resource: "company", ID: "acme"})
	})
	if resilience.IsPermanent(err) {
		t.Error("expected permanent marker to be stripped")
	}
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCall_OpenBreakerMapsToCircuitOpen(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", zap.NewNop())
	cfg := resilience.Config{}

	for i := 0; i < 5; i++ {
		_ = resilience.Call(context.Background(), cb, cfg, "store", func() error {
			return errors.New("down")
		})
	}

	err := resilience.Call(context.Background(), cb, cfg, "store", func() error { return nil })
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if open.Service != "store" {
		t.Errorf("expected service 'store', got %q", open.Service)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}
