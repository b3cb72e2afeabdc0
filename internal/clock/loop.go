package clock

import (
	"context"
	"errors"
	"time"
)

// ErrStopped is returned when posting to a loop that is no longer running.
var ErrStopped = errors.New("clock: loop stopped")

// Loop is a single-goroutine event loop around a Manual clock. Commands posted
// with Do or Call and timer callbacks all run on the loop goroutine, so state
// they touch needs no further locking.
type Loop struct {
	clock *Manual
	tick  time.Duration
	cmds  chan func()
	done  chan struct{}
}

// NewLoop creates a loop that advances its clock every tick of wall time.
func NewLoop(tick time.Duration) *Loop {
	if tick <= 0 {
		tick = 20 * time.Millisecond
	}
	return &Loop{
		clock: NewManual(),
		tick:  tick,
		cmds:  make(chan func()),
		done:  make(chan struct{}),
	}
}

// Scheduler exposes the loop clock. Use it only from code running on the loop.
func (l *Loop) Scheduler() Scheduler {
	return l.clock
}

// Clock exposes the underlying manual clock, for pausing from loop commands.
func (l *Loop) Clock() *Manual {
	return l.clock
}

// Run processes commands and ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.cmds:
			fn()
		case now := <-ticker.C:
			l.clock.Advance(now.Sub(last))
			last = now
		}
	}
}

// Do posts fn to the loop without waiting for it to run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	select {
	case l.cmds <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the loop and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Do(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
