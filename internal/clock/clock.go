package clock

import (
	"sort"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the callback. It reports false if it already fired or was stopped.
	Stop() bool
}

// Scheduler is the host clock the round controller runs on. Now only advances
// while the host is not paused, and AfterFunc delays honour the same pause.
type Scheduler interface {
	Now() time.Duration
	AfterFunc(d time.Duration, fn func()) Timer
}

// Manual is a virtual clock moved forward by its owner, typically once per
// frame of a host loop. It is not safe for concurrent use.
type Manual struct {
	now    time.Duration
	paused bool
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     uint64
	fn      func()
	done    bool
	stopped bool
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Now() time.Duration {
	return m.now
}

// AfterFunc schedules fn d after the current virtual time.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: fn}
	i := sort.Search(len(m.timers), func(i int) bool {
		o := m.timers[i]
		return o.at > t.at || (o.at == t.at && o.seq > t.seq)
	})
	m.timers = append(m.timers, nil)
	copy(m.timers[i+1:], m.timers[i:])
	m.timers[i] = t
	return t
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.stopped = true
	t.m.remove(t)
	return true
}

func (m *Manual) remove(t *manualTimer) {
	for i, o := range m.timers {
		if o == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d and runs every callback that falls due,
// in due order. Nothing happens while paused. A callback that pauses the clock
// halts the advance at its own due time. It returns the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	if m.paused || d < 0 {
		return 0
	}
	target := m.now + d
	fired := 0
	for len(m.timers) > 0 && m.timers[0].at <= target {
		t := m.timers[0]
		m.timers = m.timers[1:]
		m.now = t.at
		t.done = true
		t.fn()
		fired++
		if m.paused {
			return fired
		}
	}
	m.now = target
	return fired
}

// Pause freezes virtual time. Pending callbacks keep their remaining delay.
func (m *Manual) Pause() {
	m.paused = true
}

func (m *Manual) Resume() {
	m.paused = false
}

func (m *Manual) Paused() bool {
	return m.paused
}

// Pending is the number of callbacks waiting to fire.
func (m *Manual) Pending() int {
	return len(m.timers)
}
