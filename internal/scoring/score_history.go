package scoring

import (
	"sort"
)

// History holds the results for a particular level, including past entries
// and the round just finished.
type History struct {
	Entries []Result
	Best    *Result
	Current *Result

	level   int
	storage ResultStorage
}

// Attempts is the number of previously recorded rounds.
func (h History) Attempts() int {
	return len(h.Entries)
}

// TopN returns the best n results, the current one included.
func (h History) TopN(n int) []Result {
	all := make([]Result, len(h.Entries), len(h.Entries)+1)
	copy(all, h.Entries)
	if h.Current != nil {
		all = append(all, *h.Current)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return Better(all[i], all[j])
	})

	if len(all) < n {
		return all
	}
	return all[:n]
}

// GotHighScore checks if the current result matches or beats the previous best.
func (h History) GotHighScore() bool {
	if h.Current == nil {
		return false
	}
	if h.Best == nil {
		// First recorded round for this level.
		return true
	}
	return !Better(*h.Best, *h.Current)
}
