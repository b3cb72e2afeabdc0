package scoring

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestJSONFileStorage_SaveAndLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "go-pairs-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// The directory does not exist yet; SaveAll creates it.
	storage := NewJSONFileStorage(filepath.Join(tmpDir, "data"))

	// 1. Test Load on non-existent file (should return empty)
	results, err := storage.LoadAll()
	if err != nil {
		t.Errorf("LoadAll on non-existent file returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}

	// 2. Test Save
	testResults := []Result{
		{Level: 1, Score: 10, Attempts: 2, ElapsedMS: 4000, Timestamp: "2026-01-01"},
		{Level: 2, Score: 15, Attempts: 5, ElapsedMS: 9000, Timestamp: "2026-01-02"},
	}
	if err := storage.SaveAll(testResults); err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "data", "results.json")); os.IsNotExist(err) {
		t.Errorf("File was not created")
	}

	// 3. Test Load again (should return saved results)
	loaded, err := storage.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(loaded) != len(testResults) {
		t.Fatalf("Expected %d results, got %d", len(testResults), len(loaded))
	}
	if loaded[0] != testResults[0] || loaded[1] != testResults[1] {
		t.Errorf("Loaded content mismatch. Got: %+v", loaded)
	}
}

func TestJSONFileStorage_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "results.json"), []byte("{ not valid json }"), 0644)
	if err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	storage := NewJSONFileStorage(tmpDir)
	if _, err := storage.LoadAll(); err == nil {
		t.Error("Expected error when loading corrupt file, got nil")
	}
}

func TestJSONFileStorage_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "results.json"), []byte(""), 0644); err != nil {
		t.Fatalf("Failed to write empty file: %v", err)
	}

	storage := NewJSONFileStorage(tmpDir)
	results, err := storage.LoadAll()
	if err != nil {
		t.Errorf("LoadAll on empty file returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results from empty file, got %d", len(results))
	}
}

func TestJSONFileStorage_RecordThroughHistory(t *testing.T) {
	storage := NewJSONFileStorage(t.TempDir())
	h, err := LoadHistory(3, storage)
	if err != nil {
		t.Fatalf("LoadHistory returned error: %v", err)
	}
	if err := h.Record(Result{Score: 20, Attempts: 6}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	again, err := LoadHistory(3, storage)
	if err != nil {
		t.Fatalf("LoadHistory returned error: %v", err)
	}
	if again.Best == nil || again.Best.Score != 20 {
		t.Errorf("Expected the recorded result to be best, got %+v", again.Best)
	}
}

// TestJSONFileStorage_ConcurrentRecord records from many goroutines at once,
// as a host does when several sessions finish together. No result may be lost.
func TestJSONFileStorage_ConcurrentRecord(t *testing.T) {
	storage := NewJSONFileStorage(t.TempDir())
	const workers, rounds = 8, 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				h, err := LoadHistory(level, storage)
				if err != nil {
					t.Errorf("LoadHistory returned error: %v", err)
					return
				}
				if err := h.Record(Result{Score: i}); err != nil {
					t.Errorf("Record returned error: %v", err)
					return
				}
			}
		}(w + 1)
	}
	wg.Wait()

	all, err := storage.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(all) != workers*rounds {
		t.Errorf("expected %d results, got %d", workers*rounds, len(all))
	}
}

func TestJSONFileStorage_AppendKeepsExisting(t *testing.T) {
	storage := NewJSONFileStorage(t.TempDir())
	if err := storage.SaveAll([]Result{{Level: 1, Score: 5}}); err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}
	if err := storage.Append(Result{Level: 2, Score: 7}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	all, err := storage.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(all) != 2 || all[0].Score != 5 || all[1].Score != 7 {
		t.Errorf("unexpected results: %+v", all)
	}
}
