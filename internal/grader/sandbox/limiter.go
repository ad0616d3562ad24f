package sandbox

import (
	"context"
	"fmt"
)

// SlotLimiter caps the number of sandboxes running at once across the
// process. Acquire blocks until a slot frees up or the context is done, so
// bursts queue instead of being rejected.
type SlotLimiter struct {
	slots chan struct{}
}

// NewSlotLimiter creates a limiter with the given number of slots.
func NewSlotLimiter(max int) *SlotLimiter {
	if max <= 0 {
		max = 1
	}
	slots := make(chan struct{}, max)
	for i := 0; i < max; i++ {
		slots <- struct{}{}
	}
	return &SlotLimiter{slots: slots}
}

// Acquire takes a slot, blocking until one is available.
func (l *SlotLimiter) Acquire(ctx context.Context) error {
	select {
	case <-l.slots:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire sandbox slot: %w", ctx.Err())
	}
}

// Release returns a slot. Releasing more than was acquired is a no-op.
func (l *SlotLimiter) Release() {
	select {
	case l.slots <- struct{}{}:
	default:
	}
}

// Available reports the number of free slots.
func (l *SlotLimiter) Available() int {
	return len(l.slots)
}
