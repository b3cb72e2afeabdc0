package storage

import (
	"fmt"
	"io"
	"path/filepath"

	"go-pairs/internal/progress"
	"go-pairs/internal/scoring"
)

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

// Backend bundles the stores a game session needs.
type Backend struct {
	Unlocks progress.UnlockStore
	Results scoring.ResultStorage
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open selects a backend by kind, rooted at dir.
func Open(kind, dir string) (*Backend, error) {
	switch kind {
	case "", KindJSON:
		return &Backend{
			Unlocks: progress.NewJSONFileStore(dir),
			Results: scoring.NewJSONFileStorage(dir),
			Closer:  nopCloser{},
		}, nil
	case KindSQLite:
		db, err := OpenSQLite(filepath.Join(dir, "pairs.db"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &Backend{Unlocks: db, Results: db, Closer: db}, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", kind)
}
