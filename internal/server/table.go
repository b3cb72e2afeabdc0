package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-pairs/internal/clock"
	"go-pairs/internal/game"
	"go-pairs/internal/round"
)

// Event is pushed to every websocket subscriber of a session.
type Event struct {
	Type      string `json:"type"`
	Card      *int   `json:"card,omitempty"`
	FaceUp    *bool  `json:"faceUp,omitempty"`
	Value     string `json:"value,omitempty"`
	Score     *int   `json:"score,omitempty"`
	Attempts  *int   `json:"attempts,omitempty"`
	ElapsedMS *int64 `json:"elapsedMs,omitempty"`
}

const (
	EventCardFlipped   = "cardFlipped"
	EventMatch         = "match"
	EventMismatch      = "mismatch"
	EventScore         = "score"
	EventAttempts      = "attempts"
	EventRoundComplete = "roundComplete"
)

// table hosts one game session on its own clock loop. Session state is only
// touched from the loop goroutine; the subscriber set has its own lock.
type table struct {
	id      string
	loop    *clock.Loop
	session *game.Session
	cancel  context.CancelFunc

	// lastActive is the wall time of the last request, in unix nanoseconds.
	lastActive atomic.Int64

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newTable(id string, tick time.Duration) *table {
	t := &table{
		id:   id,
		loop: clock.NewLoop(tick),
		subs: make(map[chan Event]struct{}),
	}
	t.touch(time.Now())
	return t
}

func (t *table) touch(now time.Time) {
	t.lastActive.Store(now.UnixNano())
}

// idle reports whether nobody has used the table for ttl. An open event
// stream keeps it alive.
func (t *table) idle(now time.Time, ttl time.Duration) bool {
	t.mu.Lock()
	watched := len(t.subs) > 0
	t.mu.Unlock()
	if watched {
		return false
	}
	return now.Sub(time.Unix(0, t.lastActive.Load())) >= ttl
}

func (t *table) subscribe() chan Event {
	ch := make(chan Event, 64)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()
	return ch
}

func (t *table) unsubscribe(ch chan Event) {
	t.mu.Lock()
	delete(t.subs, ch)
	t.mu.Unlock()
}

// publish never blocks the loop: a subscriber that falls behind misses events
// and can catch up from a snapshot.
func (t *table) publish(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (t *table) events() round.Events {
	return round.Events{
		OnCardFlipped: func(id int, faceUp bool) {
			ev := Event{Type: EventCardFlipped, Card: &id, FaceUp: &faceUp}
			if faceUp && t.session != nil && t.session.Round != nil {
				if c, ok := t.session.Round.Card(id); ok {
					ev.Value = c.Value
				}
			}
			t.publish(ev)
		},
		OnMatch: func(value string) {
			t.publish(Event{Type: EventMatch, Value: value})
		},
		OnMismatch: func() {
			t.publish(Event{Type: EventMismatch})
		},
		OnScoreChanged: func(score int) {
			t.publish(Event{Type: EventScore, Score: &score})
		},
		OnAttemptsChanged: func(attempts int) {
			t.publish(Event{Type: EventAttempts, Attempts: &attempts})
		},
		OnRoundComplete: func(score, attempts int, elapsed time.Duration) {
			ms := elapsed.Milliseconds()
			t.publish(Event{Type: EventRoundComplete, Score: &score, Attempts: &attempts, ElapsedMS: &ms})
		},
	}
}

// view is a session snapshot plus the host clock state.
type view struct {
	ID string `json:"id"`
	game.Snapshot
	Paused bool `json:"paused"`
}

func (t *table) view() view {
	return view{ID: t.id, Snapshot: t.session.Snapshot(), Paused: t.loop.Clock().Paused()}
}
