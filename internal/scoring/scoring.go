package scoring

import (
	"fmt"
	"sort"
	"time"
)

// Result is the record of one completed round.
type Result struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Attempts  int    `json:"attempts"`
	ElapsedMS int64  `json:"elapsedMs"`
	Timestamp string `json:"timestamp"`
}

// Elapsed returns the round time as a duration.
func (r Result) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMS) * time.Millisecond
}

// NewResult stamps a round outcome with the current time.
func NewResult(level int, name string, score, attempts int, elapsed time.Duration) Result {
	return Result{
		Level:     level,
		Name:      name,
		Score:     score,
		Attempts:  attempts,
		ElapsedMS: elapsed.Milliseconds(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Better reports whether a beats b: higher score, then fewer attempts, then
// less time.
func Better(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Attempts != b.Attempts {
		return a.Attempts < b.Attempts
	}
	return a.ElapsedMS < b.ElapsedMS
}

// LoadHistory loads the previous results for one level from storage.
func LoadHistory(level int, storage ResultStorage) (*History, error) {
	all, err := storage.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("could not load score history: %w", err)
	}

	entries := []Result{}
	for _, r := range all {
		if r.Level == level {
			entries = append(entries, r)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return Better(entries[i], entries[j])
	})

	h := &History{
		level:   level,
		storage: storage,
		Entries: entries,
	}
	if len(entries) > 0 {
		h.Best = &entries[0]
	}
	return h, nil
}

// Record appends a finished round to storage and makes it the current result.
// Results for other levels are left untouched.
func (h *History) Record(r Result) error {
	r.Level = h.level
	if err := h.storage.Append(r); err != nil {
		return fmt.Errorf("could not save score: %w", err)
	}
	h.Current = &r
	return nil
}

// FormatElapsed renders a duration as MM:SS; hours roll into the minutes.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
