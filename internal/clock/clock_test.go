package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManual_FiresInDueOrder(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "b") })

	if n := m.Advance(99 * time.Millisecond); n != 0 {
		t.Fatalf("expected nothing to fire, got %d", n)
	}
	if n := m.Advance(time.Millisecond); n != 2 {
		t.Fatalf("expected 2 callbacks, got %d", n)
	}
	m.Advance(time.Second)

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("unexpected order: %v", order)
	}
	if m.Now() != 1100*time.Millisecond {
		t.Errorf("expected now 1.1s, got %v", m.Now())
	}
}

func TestManual_CallbackSeesItsDueTime(t *testing.T) {
	m := NewManual()
	var at time.Duration
	m.AfterFunc(250*time.Millisecond, func() { at = m.Now() })
	m.Advance(time.Second)
	if at != 250*time.Millisecond {
		t.Errorf("callback saw %v, expected 250ms", at)
	}
}

func TestManual_ChainedTimersWithinOneAdvance(t *testing.T) {
	m := NewManual()
	fired := 0
	m.AfterFunc(100*time.Millisecond, func() {
		fired++
		m.AfterFunc(100*time.Millisecond, func() { fired++ })
	})
	m.Advance(250 * time.Millisecond)
	if fired != 2 {
		t.Errorf("expected chained timer to fire in the same advance, fired=%d", fired)
	}
}

func TestManual_Stop(t *testing.T) {
	m := NewManual()
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("first Stop should report true")
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}
	m.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if m.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", m.Pending())
	}

	t2 := m.AfterFunc(0, func() {})
	m.Advance(0)
	if t2.Stop() {
		t.Error("Stop after firing should report false")
	}
}

func TestManual_PauseKeepsRemainingDelay(t *testing.T) {
	m := NewManual()
	fired := 0
	m.AfterFunc(600*time.Millisecond, func() { fired++ })

	m.Advance(400 * time.Millisecond)
	m.Pause()
	if n := m.Advance(10 * time.Second); n != 0 || fired != 0 {
		t.Fatal("timer fired while paused")
	}
	if m.Now() != 400*time.Millisecond {
		t.Errorf("time moved while paused: %v", m.Now())
	}

	m.Resume()
	m.Advance(199 * time.Millisecond)
	if fired != 0 {
		t.Fatal("timer fired early after resume")
	}
	m.Advance(time.Millisecond)
	if fired != 1 {
		t.Errorf("expected exactly one fire, got %d", fired)
	}
}

func TestManual_PauseFromCallbackHaltsAdvance(t *testing.T) {
	m := NewManual()
	second := false
	m.AfterFunc(100*time.Millisecond, func() { m.Pause() })
	m.AfterFunc(200*time.Millisecond, func() { second = true })

	m.Advance(time.Second)
	if second {
		t.Error("timer after the pause point fired")
	}
	if m.Now() != 100*time.Millisecond {
		t.Errorf("expected clock to stop at 100ms, got %v", m.Now())
	}
	m.Resume()
	m.Advance(100 * time.Millisecond)
	if !second {
		t.Error("expected second timer after resume")
	}
}

func TestLoop_CallRunsOnLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(5 * time.Millisecond)
	go l.Run(ctx)

	fired := make(chan struct{})
	if err := l.Call(ctx, func() {
		l.Scheduler().AfterFunc(10*time.Millisecond, func() { close(fired) })
	}); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired on the loop")
	}

	cancel()
	<-l.Done()
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after shutdown, got %v", err)
	}
}

func TestLoop_PausedClockDoesNotFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLoop(5 * time.Millisecond)
	go l.Run(ctx)

	fired := make(chan struct{}, 1)
	_ = l.Call(ctx, func() {
		l.Clock().Pause()
		l.Scheduler().AfterFunc(10*time.Millisecond, func() { fired <- struct{}{} })
	})

	select {
	case <-fired:
		t.Fatal("timer fired while paused")
	case <-time.After(100 * time.Millisecond):
	}

	_ = l.Call(ctx, func() { l.Clock().Resume() })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired after resume")
	}
}
