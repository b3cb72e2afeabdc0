package game

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"go-pairs/internal/clock"
	"go-pairs/internal/levels"
	"go-pairs/internal/progress"
	"go-pairs/internal/round"
	"go-pairs/internal/scoring"
)

// MockStorage implements scoring.ResultStorage for testing
type MockStorage struct {
	Results    []scoring.Result
	SaveCalled bool
}

func (m *MockStorage) LoadAll() ([]scoring.Result, error) {
	return append([]scoring.Result(nil), m.Results...), nil
}

func (m *MockStorage) SaveAll(results []scoring.Result) error {
	m.Results = results
	m.SaveCalled = true
	return nil
}

func (m *MockStorage) Append(r scoring.Result) error {
	m.Results = append(m.Results, r)
	m.SaveCalled = true
	return nil
}

func testLevels() []levels.Level {
	return []levels.Level{
		{Number: 1, Name: "One", PairCount: 1, Values: []string{"Cat"}},
		{Number: 2, Name: "Two", PairCount: 2, Values: []string{"Cat", "Dog"}},
	}
}

func newTestSession(t *testing.T, events round.Events) (*Session, *clock.Manual, *MockStorage, *progress.MemoryStore) {
	t.Helper()
	m := clock.NewManual()
	store := &MockStorage{}
	unlocks := progress.NewMemoryStore()
	sess, err := NewSession(SessionConfig{
		Levels:    testLevels(),
		Unlocks:   unlocks,
		Results:   store,
		Scheduler: m,
		Round:     round.Options{Rand: rand.New(rand.NewSource(1))},
		Events:    events,
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return sess, m, store, unlocks
}

// playOut matches every pair of the current round.
func playOut(s *Session, m *clock.Manual) {
	byValue := map[string][]int{}
	for _, c := range s.Round.Cards() {
		byValue[c.Value] = append(byValue[c.Value], c.ID)
	}
	for _, ids := range byValue {
		s.Round.RequestReveal(ids[0])
		s.Round.RequestReveal(ids[1])
		m.Advance(time.Second)
	}
}

func TestNewSession_Validation(t *testing.T) {
	m := clock.NewManual()
	cases := []SessionConfig{
		{Unlocks: progress.NewMemoryStore(), Results: &MockStorage{}, Scheduler: m},
		{Levels: testLevels(), Results: &MockStorage{}, Scheduler: m},
		{Levels: testLevels(), Unlocks: progress.NewMemoryStore(), Results: &MockStorage{}},
	}
	for i, cfg := range cases {
		if _, err := NewSession(cfg); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestSession_StartLevel(t *testing.T) {
	sess, _, _, _ := newTestSession(t, round.Events{})

	if err := sess.StartLevel(1); err != nil {
		t.Fatalf("StartLevel(1) failed: %v", err)
	}
	if sess.Round == nil || sess.Round.PairCount() != 1 {
		t.Fatal("round not built for level 1")
	}
	if sess.Round.State() != round.Idle {
		t.Errorf("expected idle round, got %v", sess.Round.State())
	}

	if err := sess.StartLevel(2); !errors.Is(err, ErrLevelLocked) {
		t.Errorf("expected ErrLevelLocked, got %v", err)
	}
	if err := sess.StartLevel(7); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("expected ErrUnknownLevel, got %v", err)
	}
	// Failed starts leave the current round alone.
	if sess.Level.Number != 1 {
		t.Errorf("current level changed to %d", sess.Level.Number)
	}
}

func TestSession_Progression(t *testing.T) {
	var completed []int
	sess, m, store, unlocks := newTestSession(t, round.Events{
		OnRoundComplete: func(score, attempts int, elapsed time.Duration) {
			completed = append(completed, score)
		},
	})

	_ = sess.StartLevel(1)
	playOut(sess, m)

	if len(completed) != 1 || completed[0] != 5 {
		t.Fatalf("UI completion hook not forwarded: %v", completed)
	}
	if !store.SaveCalled || len(store.Results) != 1 || store.Results[0].Level != 1 {
		t.Errorf("result not recorded: %+v", store.Results)
	}
	if sess.LastResult == nil || sess.LastResult.Score != 5 || sess.LastResult.Name != "One" {
		t.Errorf("unexpected last result: %+v", sess.LastResult)
	}
	if ok, _ := unlocks.IsUnlocked(2); !ok {
		t.Error("level 2 should be unlocked after completing level 1")
	}
	if !sess.HasNext() {
		t.Error("expected a next level")
	}

	if err := sess.NextLevel(); err != nil {
		t.Fatalf("NextLevel failed: %v", err)
	}
	if sess.Level.Number != 2 || sess.LastResult != nil {
		t.Errorf("unexpected state after NextLevel: level=%d last=%v", sess.Level.Number, sess.LastResult)
	}
	playOut(sess, m)

	if sess.TotalScore != 15 {
		t.Errorf("expected total 15, got %d", sess.TotalScore)
	}
	if sess.HasNext() {
		t.Error("level 2 is the last level")
	}
	if err := sess.NextLevel(); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("expected ErrUnknownLevel past the last level, got %v", err)
	}
}

func TestSession_Replay(t *testing.T) {
	sess, m, _, _ := newTestSession(t, round.Events{})
	if err := sess.Replay(); !errors.Is(err, ErrNoRound) {
		t.Errorf("expected ErrNoRound, got %v", err)
	}

	_ = sess.StartLevel(1)
	playOut(sess, m)
	if err := sess.Replay(); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if sess.Round.State() != round.Idle || sess.Round.Score() != 0 {
		t.Errorf("replay did not restart the round: %v score=%d", sess.Round.State(), sess.Round.Score())
	}
	if sess.History.Attempts() != 1 {
		t.Errorf("expected the first play in history, got %d", sess.History.Attempts())
	}
	playOut(sess, m)
	if sess.TotalScore != 10 {
		t.Errorf("expected total 10 after two plays, got %d", sess.TotalScore)
	}
}

func TestSession_LevelStatusesAndReset(t *testing.T) {
	sess, m, store, _ := newTestSession(t, round.Events{})
	store.Results = []scoring.Result{
		{Level: 1, Score: 5, Attempts: 3},
		{Level: 1, Score: 5, Attempts: 1},
	}
	_ = sess.StartLevel(1)
	playOut(sess, m)

	st, err := sess.LevelStatuses()
	if err != nil {
		t.Fatalf("LevelStatuses failed: %v", err)
	}
	if len(st) != 2 || !st[0].Unlocked || !st[1].Unlocked {
		t.Fatalf("unexpected statuses: %+v", st)
	}
	if st[0].Best == nil || st[0].Best.Attempts != 1 {
		t.Errorf("unexpected best: %+v", st[0].Best)
	}
	if st[1].Best != nil {
		t.Error("level 2 has no results yet")
	}

	if err := sess.ResetProgress(); err != nil {
		t.Fatalf("ResetProgress failed: %v", err)
	}
	st, _ = sess.LevelStatuses()
	if st[1].Unlocked {
		t.Error("level 2 still unlocked after reset")
	}
}

func TestSession_Snapshot(t *testing.T) {
	sess, _, _, _ := newTestSession(t, round.Events{})
	if snap := sess.Snapshot(); snap.State != "notStarted" || len(snap.Cards) != 0 {
		t.Errorf("unexpected empty snapshot: %+v", snap)
	}

	_ = sess.StartLevel(1)
	sess.Round.RequestReveal(0)

	snap := sess.Snapshot()
	if snap.Level != 1 || snap.Name != "One" || snap.State != "awaitingSecondCard" {
		t.Errorf("unexpected snapshot header: %+v", snap)
	}
	if len(snap.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(snap.Cards))
	}
	if snap.Cards[0].Value != "Cat" || snap.Cards[0].State != "faceUp" {
		t.Errorf("face-up card should show its value: %+v", snap.Cards[0])
	}
	if snap.Cards[1].Value != "" {
		t.Errorf("face-down card leaked its value: %+v", snap.Cards[1])
	}
	if !snap.Interaction || !snap.HasNext {
		t.Errorf("unexpected flags: %+v", snap)
	}
}
