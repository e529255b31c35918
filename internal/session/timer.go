package session

import (
	"context"
	"time"
)

// countdown tracks the remaining time and the goroutine that ticks it.
// It is guarded by the controller's mutex.
type countdown struct {
	remaining time.Duration
	step      time.Duration
	armed     bool

	// runCtx is set while Run is active; only then does a ticker goroutine exist.
	runCtx context.Context
	cancel context.CancelFunc
}

// decrement removes one step and reports whether time just ran out.
func (t *countdown) decrement() bool {
	if t.remaining <= 0 {
		t.remaining = 0
		return true
	}
	t.remaining -= t.step
	if t.remaining <= 0 {
		t.remaining = 0
		return true
	}
	return false
}

// arm lets Tick count down and starts the ticker when Run is active.
func (t *countdown) arm(tick func(context.Context)) {
	t.armed = true
	if t.runCtx == nil || t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(t.runCtx)
	t.cancel = cancel
	step := t.step
	go func(runCtx context.Context) {
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(runCtx)
			}
		}
	}(t.runCtx)
}

// disarm stops counting and cancels the ticker goroutine.
func (t *countdown) disarm() {
	t.armed = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
