package round

import (
	"context"

	"github.com/looplab/fsm"
)

// State is the phase of a round as seen by the UI layer.
type State int

const (
	NotStarted State = iota
	Previewing
	Idle
	AwaitingSecondCard
	Resolving
	Blocked
	Complete
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "notStarted"
	case Previewing:
		return "previewing"
	case Idle:
		return "idle"
	case AwaitingSecondCard:
		return "awaitingSecondCard"
	case Resolving:
		return "resolving"
	case Blocked:
		return "blocked"
	case Complete:
		return "complete"
	}
	return "unknown"
}

const (
	stateStart      = "start"
	statePreviewing = "previewing"
	stateIdle       = "idle"
	stateAwaiting   = "awaitingSecondCard"
	stateResolving  = "resolving"
	stateComplete   = "complete"
)

func getStateTransitions() []fsm.EventDesc {
	return fsm.Events{
		// Round start
		{Name: "preview", Src: []string{stateStart}, Dst: statePreviewing},
		{Name: "begin", Src: []string{stateStart, statePreviewing}, Dst: stateIdle},

		// Reveals
		{Name: "reveal", Src: []string{stateIdle}, Dst: stateAwaiting},
		{Name: "reveal", Src: []string{stateAwaiting}, Dst: stateResolving},
		{Name: "resolved", Src: []string{stateResolving}, Dst: stateIdle},

		// End
		{Name: "finish", Src: []string{stateIdle}, Dst: stateComplete},
	}
}

func getStateCallbacks(c *Controller) map[string]fsm.Callback {
	return fsm.Callbacks{
		"enter_previewing": func(ctx context.Context, e *fsm.Event) {
			for _, card := range c.board.Cards() {
				c.board.Flip(card.ID)
				c.emitFlipped(card.ID, true)
			}
			c.after(c.opts.PreviewDuration, func() {
				for _, card := range c.board.Cards() {
					c.board.Hide(card.ID)
					c.emitFlipped(card.ID, false)
				}
				c.after(c.opts.SettleDelay, func() {
					_ = c.FSM.Event(context.Background(), "begin")
				})
			})
		},
		"after_begin": func(ctx context.Context, e *fsm.Event) {
			c.clockRunning = true
			c.startedAt = c.sched.Now()
		},
		"enter_resolving": func(ctx context.Context, e *fsm.Event) {
			c.resolving = true
			gen := c.gen
			c.after(c.opts.ResolveDelay, func() {
				c.resolve(gen)
			})
		},
		"enter_complete": func(ctx context.Context, e *fsm.Event) {
			c.elapsed = c.sched.Now() - c.startedAt
			c.clockRunning = false
			if c.events.OnRoundComplete != nil {
				c.events.OnRoundComplete(c.score, c.attempts, c.elapsed)
			}
		},
	}
}
