package game

import (
	"errors"
	"fmt"
	"time"

	"go-pairs/internal/board"
	"go-pairs/internal/clock"
	"go-pairs/internal/levels"
	"go-pairs/internal/progress"
	"go-pairs/internal/round"
	"go-pairs/internal/scoring"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownLevel = errors.New("unknown level")
	ErrLevelLocked  = errors.New("level is locked")
	ErrNoRound      = errors.New("no round in progress")
)

// SessionConfig wires a session to its catalogue, stores and host clock.
type SessionConfig struct {
	Levels    []levels.Level
	Unlocks   progress.UnlockStore
	Results   scoring.ResultStorage
	Scheduler clock.Scheduler
	// Round carries timing and scoring; the pair count and values come from
	// the level being played.
	Round round.Options
	// Events are forwarded from the round to the UI layer.
	Events round.Events
}

// Session plays levels one after another and takes care of what happens
// around a round: results, unlocks and the running total.
type Session struct {
	Levels     []levels.Level
	Level      levels.Level
	Round      *round.Controller
	History    *scoring.History
	TotalScore int
	LastResult *scoring.Result

	unlocks progress.UnlockStore
	results scoring.ResultStorage
	sched   clock.Scheduler
	opts    round.Options
	events  round.Events
	log     zerolog.Logger
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.Levels) == 0 {
		return nil, fmt.Errorf("no levels configured")
	}
	if cfg.Unlocks == nil || cfg.Results == nil {
		return nil, fmt.Errorf("session stores are required")
	}
	if cfg.Scheduler == nil {
		return nil, fmt.Errorf("session scheduler is required")
	}
	return &Session{
		Levels:  cfg.Levels,
		unlocks: cfg.Unlocks,
		results: cfg.Results,
		sched:   cfg.Scheduler,
		opts:    cfg.Round,
		events:  cfg.Events,
		log:     log.With().Str("component", "session").Logger(),
	}, nil
}

// StartLevel builds and starts a round for an unlocked level.
func (s *Session) StartLevel(number int) error {
	lvl, ok := levels.Find(s.Levels, number)
	if !ok {
		return fmt.Errorf("level %d: %w", number, ErrUnknownLevel)
	}
	unlocked, err := s.unlocks.IsUnlocked(number)
	if err != nil {
		return fmt.Errorf("check unlock for level %d: %w", number, err)
	}
	if !unlocked {
		return fmt.Errorf("level %d: %w", number, ErrLevelLocked)
	}

	history, err := scoring.LoadHistory(number, s.results)
	if err != nil {
		return err
	}

	opts := s.opts
	opts.PairCount = lvl.PairCount
	opts.Values = lvl.Values
	ctrl, err := round.New(opts, s.sched, s.roundEvents())
	if err != nil {
		return fmt.Errorf("level %d: %w", number, err)
	}

	s.Level = lvl
	s.History = history
	s.Round = ctrl
	s.LastResult = nil
	s.log.Info().Int("level", number).Int("pairs", lvl.PairCount).Msg("level started")
	ctrl.Start()
	return nil
}

// Replay restarts the current level with a fresh shuffle.
func (s *Session) Replay() error {
	if s.Round == nil {
		return ErrNoRound
	}
	history, err := scoring.LoadHistory(s.Level.Number, s.results)
	if err != nil {
		return err
	}
	s.History = history
	s.LastResult = nil
	s.log.Info().Int("level", s.Level.Number).Msg("level replayed")
	return s.Round.Restart(true)
}

// HasNext reports whether a level follows the current one in the catalogue.
func (s *Session) HasNext() bool {
	_, ok := s.next()
	return ok
}

// NextLevel starts the level after the current one.
func (s *Session) NextLevel() error {
	if s.Round == nil {
		return ErrNoRound
	}
	next, ok := s.next()
	if !ok {
		return fmt.Errorf("no level after %d: %w", s.Level.Number, ErrUnknownLevel)
	}
	return s.StartLevel(next.Number)
}

func (s *Session) next() (levels.Level, bool) {
	for i, l := range s.Levels {
		if l.Number == s.Level.Number && i+1 < len(s.Levels) {
			return s.Levels[i+1], true
		}
	}
	return levels.Level{}, false
}

// ResetProgress locks every level but the first.
func (s *Session) ResetProgress() error {
	if err := s.unlocks.Reset(); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	s.log.Info().Msg("progress reset")
	return nil
}

func (s *Session) roundEvents() round.Events {
	ev := s.events
	ui := s.events.OnRoundComplete
	ev.OnRoundComplete = func(score, attempts int, elapsed time.Duration) {
		s.roundComplete(score, attempts, elapsed)
		if ui != nil {
			ui(score, attempts, elapsed)
		}
	}
	return ev
}

func (s *Session) roundComplete(score, attempts int, elapsed time.Duration) {
	r := scoring.NewResult(s.Level.Number, s.Level.Name, score, attempts, elapsed)
	if err := s.History.Record(r); err != nil {
		s.log.Error().Err(err).Int("level", s.Level.Number).Msg("record result")
	}
	s.LastResult = &r
	s.TotalScore += score

	if next, ok := s.next(); ok {
		if err := s.unlocks.Unlock(next.Number); err != nil {
			s.log.Error().Err(err).Int("level", next.Number).Msg("unlock next level")
		} else {
			s.log.Info().Int("level", next.Number).Msg("level unlocked")
		}
	}

	s.log.Info().
		Int("level", s.Level.Number).
		Int("score", score).
		Int("attempts", attempts).
		Dur("elapsed", elapsed).
		Msg("level complete")
}

// LevelStatus is one row of the level select screen.
type LevelStatus struct {
	Level    levels.Level
	Unlocked bool
	Best     *scoring.Result
}

func (s *Session) LevelStatuses() ([]LevelStatus, error) {
	return LevelStatuses(s.Levels, s.unlocks, s.results)
}

// LevelStatuses reports, for each level, whether it is unlocked and its best
// recorded result.
func LevelStatuses(catalogue []levels.Level, unlocks progress.UnlockStore, results scoring.ResultStorage) ([]LevelStatus, error) {
	all, err := results.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	best := map[int]scoring.Result{}
	for _, r := range all {
		if b, ok := best[r.Level]; !ok || scoring.Better(r, b) {
			best[r.Level] = r
		}
	}

	out := make([]LevelStatus, 0, len(catalogue))
	for _, l := range catalogue {
		unlocked, err := unlocks.IsUnlocked(l.Number)
		if err != nil {
			return nil, err
		}
		st := LevelStatus{Level: l, Unlocked: unlocked}
		if b, ok := best[l.Number]; ok {
			st.Best = &b
		}
		out = append(out, st)
	}
	return out, nil
}

// CardView is a card as a client may see it; the value of a face-down card
// stays hidden.
type CardView struct {
	ID    int    `json:"id"`
	State string `json:"state"`
	Value string `json:"value,omitempty"`
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Level       int        `json:"level"`
	Name        string     `json:"name"`
	State       string     `json:"state"`
	Cards       []CardView `json:"cards"`
	Score       int        `json:"score"`
	Attempts    int        `json:"attempts"`
	ElapsedMS   int64      `json:"elapsedMs"`
	Interaction bool       `json:"interaction"`
	TotalScore  int        `json:"totalScore"`
	HasNext     bool       `json:"hasNext"`
}

func (s *Session) Snapshot() Snapshot {
	if s.Round == nil {
		return Snapshot{State: round.NotStarted.String(), TotalScore: s.TotalScore}
	}
	cards := s.Round.Cards()
	views := make([]CardView, len(cards))
	for i, c := range cards {
		views[i] = CardView{ID: c.ID, State: c.State.String()}
		if c.State != board.FaceDown {
			views[i].Value = c.Value
		}
	}
	return Snapshot{
		Level:       s.Level.Number,
		Name:        s.Level.Name,
		State:       s.Round.State().String(),
		Cards:       views,
		Score:       s.Round.Score(),
		Attempts:    s.Round.Attempts(),
		ElapsedMS:   s.Round.Elapsed().Milliseconds(),
		Interaction: s.Round.InteractionEnabled(),
		TotalScore:  s.TotalScore,
		HasNext:     s.HasNext(),
	}
}
