package sandbox_test

import (
	"context"
	"testing"
	"time"

	"bugdojo/internal/grader/sandbox"
)

func TestSlotLimiterCapsConcurrency(t *testing.T) {
	l := sandbox.NewSlotLimiter(2)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if l.Available() != 0 {
		t.Fatalf("available = %d", l.Available())
	}

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(blocked); err == nil {
		t.Fatal("third acquire must block until a slot frees")
	}

	l.Release()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestSlotLimiterReleaseOverflowIgnored(t *testing.T) {
	l := sandbox.NewSlotLimiter(1)
	l.Release()
	l.Release()
	if l.Available() != 1 {
		t.Fatalf("available = %d, want 1", l.Available())
	}
}

func TestSlotLimiterQueuedWaiterGetsSlot(t *testing.T) {
	l := sandbox.NewSlotLimiter(1)
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	got := make(chan error, 1)
	go func() {
		got <- l.Acquire(ctx)
	}()

	l.Release()
	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("queued acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queued waiter never got the freed slot")
	}
}
