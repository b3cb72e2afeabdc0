package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FirstLevel is always playable.
const FirstLevel = 1

// UnlockStore persists which levels a player may start.
type UnlockStore interface {
	IsUnlocked(level int) (bool, error)
	Unlock(level int) error
	// Unlocked lists unlocked levels in ascending order.
	Unlocked() ([]int, error)
	// Reset forgets every unlock except the first level.
	Reset() error
}

// MemoryStore keeps unlocks in memory.
type MemoryStore struct {
	mu     sync.Mutex
	levels map[int]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{levels: map[int]bool{FirstLevel: true}}
}

func (m *MemoryStore) IsUnlocked(level int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return level == FirstLevel || m.levels[level], nil
}

func (m *MemoryStore) Unlock(level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[level] = true
	return nil
}

func (m *MemoryStore) Unlocked() ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedLevels(m.levels), nil
}

func (m *MemoryStore) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = map[int]bool{FirstLevel: true}
	return nil
}

func sortedLevels(set map[int]bool) []int {
	out := []int{FirstLevel}
	for l, ok := range set {
		if ok && l != FirstLevel {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	return out
}

// JSONFileStore keeps unlocks in unlocks.json inside a data directory.
type JSONFileStore struct {
	mu   sync.Mutex
	path string
}

type unlockFile struct {
	Unlocked []int `json:"unlocked"`
}

func NewJSONFileStore(dir string) *JSONFileStore {
	return &JSONFileStore{path: filepath.Join(dir, "unlocks.json")}
}

func (s *JSONFileStore) IsUnlocked(level int) (bool, error) {
	if level == FirstLevel {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.load()
	if err != nil {
		return false, err
	}
	return set[level], nil
}

func (s *JSONFileStore) Unlock(level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.load()
	if err != nil {
		return err
	}
	if set[level] {
		return nil
	}
	set[level] = true
	return s.save(set)
}

func (s *JSONFileStore) Unlocked() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.load()
	if err != nil {
		return nil, err
	}
	return sortedLevels(set), nil
}

func (s *JSONFileStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(map[int]bool{FirstLevel: true})
}

func (s *JSONFileStore) load() (map[int]bool, error) {
	set := map[int]bool{FirstLevel: true}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading unlocks file: %w", err)
	}
	if len(data) == 0 {
		return set, nil
	}
	var f unlockFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error decoding unlocks file: %w", err)
	}
	for _, l := range f.Unlocked {
		set[l] = true
	}
	return set, nil
}

func (s *JSONFileStore) save(set map[int]bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("error creating unlocks directory: %w", err)
	}
	data, err := json.MarshalIndent(unlockFile{Unlocked: sortedLevels(set)}, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding unlocks: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("error writing unlocks file: %w", err)
	}
	return nil
}
