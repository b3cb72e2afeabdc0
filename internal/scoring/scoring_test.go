package scoring

import (
	"errors"
	"testing"
	"time"
)

// MockResultStorage is a mock implementation of the ResultStorage interface
// that stores results in memory. This is used for testing.
type MockResultStorage struct {
	Results []Result
	err     error // To simulate errors from the storage layer.
}

// LoadAll returns the in-memory results or a simulated error.
func (m *MockResultStorage) LoadAll() ([]Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]Result(nil), m.Results...), nil
}

// SaveAll replaces the in-memory results with the provided slice or returns a simulated error.
func (m *MockResultStorage) SaveAll(results []Result) error {
	if m.err != nil {
		return m.err
	}
	m.Results = results
	return nil
}

// Append adds one result or returns a simulated error.
func (m *MockResultStorage) Append(r Result) error {
	if m.err != nil {
		return m.err
	}
	m.Results = append(m.Results, r)
	return nil
}

// TestLoadHistory_NewLevel verifies that a level with no prior results has an
// empty history.
func TestLoadHistory_NewLevel(t *testing.T) {
	h, err := LoadHistory(1, &MockResultStorage{})
	if err != nil {
		t.Fatalf("LoadHistory returned an unexpected error: %v", err)
	}
	if h.Attempts() != 0 {
		t.Errorf("expected 0 attempts for a new level, but got %d", h.Attempts())
	}
	if h.Best != nil {
		t.Errorf("expected nil best result, but got %v", h.Best)
	}
	if h.GotHighScore() {
		t.Error("no current result yet, expected no high score")
	}
}

// TestLoadHistory_FiltersAndSorts verifies that only the requested level is
// loaded and that the best result comes first.
func TestLoadHistory_FiltersAndSorts(t *testing.T) {
	store := &MockResultStorage{
		Results: []Result{
			{Level: 2, Score: 999},
			{Level: 1, Score: 10, Attempts: 4, ElapsedMS: 9000},
			{Level: 1, Score: 10, Attempts: 2, ElapsedMS: 12000},
			{Level: 1, Score: 5, Attempts: 1},
		},
	}

	h, err := LoadHistory(1, store)
	if err != nil {
		t.Fatalf("LoadHistory returned an unexpected error: %v", err)
	}
	if h.Attempts() != 3 {
		t.Errorf("expected 3 attempts, but got %d", h.Attempts())
	}
	if h.Best == nil || h.Best.Attempts != 2 {
		t.Fatalf("expected the 2-attempt round to be best, got %+v", h.Best)
	}
}

func TestLoadHistory_StorageError(t *testing.T) {
	_, err := LoadHistory(1, &MockResultStorage{err: errors.New("disk gone")})
	if err == nil {
		t.Fatal("expected error from storage")
	}
}

func TestBetter(t *testing.T) {
	tests := []struct {
		name string
		a, b Result
		want bool
	}{
		{"higher score", Result{Score: 10}, Result{Score: 5}, true},
		{"lower score", Result{Score: 5, Attempts: 1}, Result{Score: 10, Attempts: 9}, false},
		{"fewer attempts", Result{Score: 10, Attempts: 2}, Result{Score: 10, Attempts: 3}, true},
		{"faster", Result{Score: 10, Attempts: 2, ElapsedMS: 100}, Result{Score: 10, Attempts: 2, ElapsedMS: 200}, true},
		{"equal", Result{Score: 10, Attempts: 2, ElapsedMS: 100}, Result{Score: 10, Attempts: 2, ElapsedMS: 100}, false},
	}

	for _, tt := range tests {
		if got := Better(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Better = %v, expected %v", tt.name, got, tt.want)
		}
	}
}

// TestRecord verifies that a new result is appended to storage and becomes
// the current result.
func TestRecord(t *testing.T) {
	store := &MockResultStorage{
		Results: []Result{
			{Level: 2, Score: 30},
			{Level: 1, Score: 10, Attempts: 3},
		},
	}
	h, _ := LoadHistory(1, store)

	r := NewResult(0, "Pets", 10, 2, 1500*time.Millisecond)
	if err := h.Record(r); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if len(store.Results) != 3 {
		t.Fatalf("expected 3 stored results, got %d", len(store.Results))
	}
	saved := store.Results[2]
	if saved.Level != 1 || saved.ElapsedMS != 1500 || saved.Name != "Pets" {
		t.Errorf("unexpected saved result: %+v", saved)
	}
	if saved.Timestamp == "" {
		t.Error("expected a timestamp")
	}
	if h.Current == nil || h.Current.Elapsed() != 1500*time.Millisecond {
		t.Errorf("unexpected current result: %+v", h.Current)
	}
	if !h.GotHighScore() {
		t.Error("fewer attempts at the same score should be a high score")
	}
}

func TestRecord_StorageError(t *testing.T) {
	store := &MockResultStorage{}
	h, _ := LoadHistory(1, store)
	store.err = errors.New("read only")

	if err := h.Record(Result{Score: 5}); err == nil {
		t.Error("expected error from storage")
	}
	if h.Current != nil {
		t.Error("failed record should not set the current result")
	}
}

// TestTopN_IncludesCurrent verifies that TopN combines history and the
// current result in rank order.
func TestTopN_IncludesCurrent(t *testing.T) {
	store := &MockResultStorage{
		Results: []Result{
			{Level: 1, Score: 5},
			{Level: 1, Score: 15},
		},
	}
	h, _ := LoadHistory(1, store)
	_ = h.Record(Result{Score: 10})

	top := h.TopN(5)
	if len(top) != 3 {
		t.Fatalf("expected 3 results, got %d", len(top))
	}
	if top[0].Score != 15 || top[1].Score != 10 || top[2].Score != 5 {
		t.Errorf("unexpected order: %+v", top)
	}
	if len(h.TopN(2)) != 2 {
		t.Error("TopN(2) should be truncated")
	}
	if h.GotHighScore() {
		t.Error("10 does not beat 15")
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59*time.Second + 900*time.Millisecond, "00:59"},
		{83 * time.Second, "01:23"},
		{time.Hour + 5*time.Second, "60:05"},
	}

	for _, tt := range tests {
		if got := FormatElapsed(tt.in); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %s, expected %s", tt.in, got, tt.want)
		}
	}
}
