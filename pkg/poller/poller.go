// Package poller owns the single repeating refresh timer.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrInvalidInterval is returned by Start for a non-positive interval.
var ErrInvalidInterval = errors.New("poll interval must be positive")

// Poller calls onTick on a fixed interval. At most one timer goroutine is alive at any
// time: Start always stops and waits for the previous one first.
//
// onTick runs on the timer goroutine and must not call Start, Stop or Restart.
type Poller struct {
	ctx      context.Context //nolint:containedctx // parent of every timer goroutine
	onTick   func()
	cancel   context.CancelFunc
	done     chan struct{}
	live     atomic.Int32
	interval time.Duration
	mu       sync.Mutex
}

// New creates a stopped poller. Timers end when ctx is canceled.
func New(ctx context.Context, onTick func()) *Poller {
	return &Poller{ctx: ctx, onTick: onTick}
}

// Start replaces any running timer with one firing every interval.
func (p *Poller) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(p.ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.interval = interval
	p.live.Add(1)

	go p.loop(ctx, interval, done)
	slog.Info("[POLL] Refresh timer started", "interval", interval)
	return nil
}

// Stop cancels the running timer, if any, and waits for it to exit. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Restart is Stop followed by Start. Used on every settings save, changed interval or not.
// An invalid interval is rejected before the running timer is touched.
func (p *Poller) Restart(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
	return p.Start(interval)
}

// Running reports whether a timer is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Interval returns the interval of the active timer, or zero when stopped.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return 0
	}
	return p.interval
}

// Live returns the number of timer goroutines currently alive.
func (p *Poller) Live() int {
	return int(p.live.Load())
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	slog.Debug("[POLL] Refresh timer stopped")
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer p.live.Add(-1)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Debug("[POLL] Tick, requesting auto refresh")
			p.tick()
		case <-ctx.Done():
			return
		}
	}
}

// tick keeps the timer alive across a panicking callback.
func (p *Poller) tick() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[POLL] Refresh callback panicked", "panic", r)
		}
	}()
	p.onTick()
}
