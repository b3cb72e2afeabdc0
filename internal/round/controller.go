package round

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"go-pairs/internal/board"
	"go-pairs/internal/clock"

	"github.com/looplab/fsm"
)

const (
	DefaultMatchPoints     = 5
	DefaultResolveDelay    = 600 * time.Millisecond
	DefaultPreviewDuration = 2 * time.Second
	DefaultSettleDelay     = 300 * time.Millisecond
)

// Options configures a round. Zero durations and points fall back to the defaults.
type Options struct {
	PairCount       int
	Values          []string
	MatchPoints     int
	ResolveDelay    time.Duration
	Preview         bool
	PreviewDuration time.Duration
	SettleDelay     time.Duration
	Rand            *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.MatchPoints == 0 {
		o.MatchPoints = DefaultMatchPoints
	}
	if o.ResolveDelay == 0 {
		o.ResolveDelay = DefaultResolveDelay
	}
	if o.PreviewDuration == 0 {
		o.PreviewDuration = DefaultPreviewDuration
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	return o
}

// Events are the notifications a round emits. Nil hooks are skipped.
type Events struct {
	OnCardFlipped     func(id int, faceUp bool)
	OnMatch           func(value string)
	OnMismatch        func()
	OnScoreChanged    func(score int)
	OnAttemptsChanged func(attempts int)
	OnRoundComplete   func(score, attempts int, elapsed time.Duration)
}

// Controller runs one round of the matching game. All methods must be called
// from the goroutine that drives its scheduler.
type Controller struct {
	opts   Options
	sched  clock.Scheduler
	events Events

	board *board.Board
	FSM   *fsm.FSM

	revealed    []int
	resolving   bool
	interaction bool
	deferred    bool
	score       int
	attempts    int

	clockRunning bool
	startedAt    time.Duration
	elapsed      time.Duration

	pending clock.Timer
	gen     uint64
}

// New builds the board for a round. The round does not begin until Start.
func New(opts Options, sched clock.Scheduler, events Events) (*Controller, error) {
	if sched == nil {
		return nil, fmt.Errorf("round: scheduler is required")
	}
	c := &Controller{
		opts:   opts.withDefaults(),
		sched:  sched,
		events: events,
	}
	if err := c.reset(true); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) reset(reshuffle bool) error {
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	if reshuffle || c.board == nil {
		b, err := board.Build(c.opts.PairCount, c.opts.Values, c.opts.Rand)
		if err != nil {
			return err
		}
		c.board = b
	} else {
		c.board.Reset()
	}

	c.revealed = c.revealed[:0]
	c.resolving = false
	c.interaction = true
	c.deferred = false
	c.score = 0
	c.attempts = 0
	c.clockRunning = false
	c.startedAt = 0
	c.elapsed = 0
	c.FSM = fsm.NewFSM(
		stateStart,
		getStateTransitions(),
		getStateCallbacks(c),
	)
	return nil
}

// Start begins the round, with the intro preview when configured. Calling it
// again has no effect.
func (c *Controller) Start() {
	if !c.FSM.Is(stateStart) {
		return
	}
	if c.opts.Preview {
		_ = c.FSM.Event(context.Background(), "preview")
		return
	}
	_ = c.FSM.Event(context.Background(), "begin")
}

// Restart abandons the current round and starts a new one. With reshuffle the
// board is rebuilt, otherwise the same layout is turned face down.
func (c *Controller) Restart(reshuffle bool) error {
	if err := c.reset(reshuffle); err != nil {
		return err
	}
	c.Start()
	return nil
}

// RequestReveal asks to turn a card face up. Requests that break the round
// rules are dropped without any state change or event.
func (c *Controller) RequestReveal(id int) {
	if !c.canReveal(id) {
		return
	}
	c.board.Flip(id)
	c.revealed = append(c.revealed, id)
	c.emitFlipped(id, true)
	_ = c.FSM.Event(context.Background(), "reveal")
}

func (c *Controller) canReveal(id int) bool {
	if !c.interaction || c.resolving || !c.FSM.Can("reveal") {
		return false
	}
	card, ok := c.board.Card(id)
	if !ok || card.State != board.FaceDown {
		return false
	}
	return !slices.Contains(c.revealed, id)
}

// SetInteractionEnabled blocks or unblocks reveals while an overlay holds focus.
// A pending resolution still runs while blocked. Re-enabling delivers a
// completion that was held back by the overlay.
func (c *Controller) SetInteractionEnabled(enabled bool) {
	c.interaction = enabled
	if enabled {
		c.checkComplete()
	}
}

func (c *Controller) resolve(gen uint64) {
	if gen != c.gen || !c.FSM.Is(stateResolving) || len(c.revealed) != 2 {
		return
	}
	c.pending = nil

	first, _ := c.board.Card(c.revealed[0])
	second, _ := c.board.Card(c.revealed[1])

	c.attempts++
	if c.events.OnAttemptsChanged != nil {
		c.events.OnAttemptsChanged(c.attempts)
	}

	if first.Value == second.Value {
		c.board.MarkMatched(first.ID)
		c.board.MarkMatched(second.ID)
		c.score += c.opts.MatchPoints
		if c.events.OnMatch != nil {
			c.events.OnMatch(first.Value)
		}
		if c.events.OnScoreChanged != nil {
			c.events.OnScoreChanged(c.score)
		}
	} else {
		c.board.Hide(first.ID)
		c.board.Hide(second.ID)
		c.emitFlipped(first.ID, false)
		c.emitFlipped(second.ID, false)
		if c.events.OnMismatch != nil {
			c.events.OnMismatch()
		}
	}

	// A hook may have restarted the round.
	if gen != c.gen {
		return
	}

	c.revealed = c.revealed[:0]
	c.resolving = false
	_ = c.FSM.Event(context.Background(), "resolved")
	c.checkComplete()
}

func (c *Controller) checkComplete() {
	if !c.FSM.Is(stateIdle) || !c.board.AllMatched() {
		return
	}
	if !c.interaction {
		c.deferred = true
		return
	}
	c.deferred = false
	_ = c.FSM.Event(context.Background(), "finish")
}

func (c *Controller) after(d time.Duration, fn func()) {
	gen := c.gen
	c.pending = c.sched.AfterFunc(d, func() {
		if gen != c.gen {
			return
		}
		c.pending = nil
		fn()
	})
}

func (c *Controller) emitFlipped(id int, faceUp bool) {
	if c.events.OnCardFlipped != nil {
		c.events.OnCardFlipped(id, faceUp)
	}
}

// State reports the controller phase. An open overlay shows as Blocked.
func (c *Controller) State() State {
	switch c.FSM.Current() {
	case stateComplete:
		return Complete
	case stateStart:
		return NotStarted
	}
	if !c.interaction {
		return Blocked
	}
	switch c.FSM.Current() {
	case statePreviewing:
		return Previewing
	case stateAwaiting:
		return AwaitingSecondCard
	case stateResolving:
		return Resolving
	}
	return Idle
}

// Cards returns a copy of the board for rendering.
func (c *Controller) Cards() []board.Card {
	return c.board.Cards()
}

// Card returns a copy of one card.
func (c *Controller) Card(id int) (board.Card, bool) {
	return c.board.Card(id)
}

// Revealed lists the face-up cards awaiting resolution.
func (c *Controller) Revealed() []int {
	return slices.Clone(c.revealed)
}

func (c *Controller) Score() int { return c.score }
func (c *Controller) Attempts() int { return c.attempts }
func (c *Controller) IsResolving() bool { return c.resolving }
func (c *Controller) InteractionEnabled() bool { return c.interaction }
func (c *Controller) CompletionDeferred() bool { return c.deferred }
func (c *Controller) MatchPoints() int { return c.opts.MatchPoints }
func (c *Controller) PairCount() int { return c.board.PairCount() }
func (c *Controller) ResolveDelay() time.Duration { return c.opts.ResolveDelay }

// Elapsed is the time on the round clock. It starts after the preview and
// stops at completion.
func (c *Controller) Elapsed() time.Duration {
	if c.FSM.Is(stateComplete) {
		return c.elapsed
	}
	if !c.clockRunning {
		return 0
	}
	return c.sched.Now() - c.startedAt
}
