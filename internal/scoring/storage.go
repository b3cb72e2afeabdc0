package scoring

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ResultStorage is where finished rounds are kept. One store is shared by
// every session a host runs, so Append must be safe to call concurrently.
type ResultStorage interface {
	// LoadAll returns every stored result in the order it was recorded.
	LoadAll() ([]Result, error)
	// SaveAll replaces the stored results with results.
	SaveAll(results []Result) error
	// Append adds one result without touching the others.
	Append(r Result) error
}

// JSONFileStorage keeps one JSON object per line in results.json. All access
// goes through mu, so a single value may be shared across goroutines.
type JSONFileStorage struct {
	mu   sync.Mutex
	path string
}

// NewJSONFileStorage stores results in results.json inside dir.
func NewJSONFileStorage(dir string) *JSONFileStorage {
	return &JSONFileStorage{path: filepath.Join(dir, "results.json")}
}

// LoadAll reads and decodes all results from the JSON file.
func (jfs *JSONFileStorage) LoadAll() ([]Result, error) {
	jfs.mu.Lock()
	defer jfs.mu.Unlock()

	file, err := os.Open(jfs.path)
	// If the file doesn't exist, it's not an error; return an empty slice.
	if os.IsNotExist(err) {
		return []Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error opening results file for reading: %w", err)
	}
	defer file.Close()

	results := make([]Result, 0)
	decoder := json.NewDecoder(file)
	for decoder.More() {
		var r Result
		if err := decoder.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error decoding JSON entry: %w", err)
		}
		results = append(results, r)
	}

	return results, nil
}

// SaveAll encodes and writes all results to the JSON file.
func (jfs *JSONFileStorage) SaveAll(results []Result) error {
	jfs.mu.Lock()
	defer jfs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(jfs.path), 0755); err != nil {
		return fmt.Errorf("error creating results directory: %w", err)
	}

	file, err := os.OpenFile(jfs.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error opening results file for writing: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	for _, r := range results {
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("error encoding JSON entry: %w", err)
		}
	}

	return writer.Flush()
}

// Append writes r as a single line at the end of the file.
func (jfs *JSONFileStorage) Append(r Result) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("error encoding JSON entry: %w", err)
	}
	line = append(line, '\n')

	jfs.mu.Lock()
	defer jfs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(jfs.path), 0755); err != nil {
		return fmt.Errorf("error creating results directory: %w", err)
	}
	file, err := os.OpenFile(jfs.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("error opening results file for appending: %w", err)
	}
	if _, err := file.Write(line); err != nil {
		file.Close()
		return fmt.Errorf("error appending result: %w", err)
	}
	return file.Close()
}
