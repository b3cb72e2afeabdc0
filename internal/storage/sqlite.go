package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go-pairs/internal/progress"
	"go-pairs/internal/scoring"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS unlocks (
		level INTEGER PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		level      INTEGER NOT NULL,
		name       TEXT    NOT NULL DEFAULT '',
		score      INTEGER NOT NULL,
		attempts   INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		timestamp  TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS results_level ON results(level)`,
}

// SQLite keeps unlocks and results in one database file.
type SQLite struct {
	db *sql.DB
}

var (
	_ progress.UnlockStore  = (*SQLite)(nil)
	_ scoring.ResultStorage = (*SQLite)(nil)
)

// OpenSQLite opens (and creates if missing) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// One connection keeps the store usable with in-memory databases.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Debug().Str("path", path).Msg("sqlite store ready")
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) IsUnlocked(level int) (bool, error) {
	if level == progress.FirstLevel {
		return true, nil
	}
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM unlocks WHERE level = ?`, level).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query unlock: %w", err)
	}
	return n > 0, nil
}

func (s *SQLite) Unlock(level int) error {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO unlocks(level) VALUES (?)`, level); err != nil {
		return fmt.Errorf("insert unlock: %w", err)
	}
	return nil
}

func (s *SQLite) Unlocked() ([]int, error) {
	rows, err := s.db.Query(`SELECT level FROM unlocks WHERE level <> ? ORDER BY level`, progress.FirstLevel)
	if err != nil {
		return nil, fmt.Errorf("query unlocks: %w", err)
	}
	defer rows.Close()

	out := []int{progress.FirstLevel}
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLite) Reset() error {
	if _, err := s.db.Exec(`DELETE FROM unlocks`); err != nil {
		return fmt.Errorf("reset unlocks: %w", err)
	}
	return nil
}

func (s *SQLite) LoadAll() ([]scoring.Result, error) {
	rows, err := s.db.Query(`SELECT level, name, score, attempts, elapsed_ms, timestamp FROM results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := []scoring.Result{}
	for rows.Next() {
		var r scoring.Result
		if err := rows.Scan(&r.Level, &r.Name, &r.Score, &r.Attempts, &r.ElapsedMS, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Append inserts one result row.
func (s *SQLite) Append(r scoring.Result) error {
	_, err := s.db.Exec(`INSERT INTO results(level, name, score, attempts, elapsed_ms, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Level, r.Name, r.Score, r.Attempts, r.ElapsedMS, r.Timestamp)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// SaveAll replaces every stored result inside one transaction.
func (s *SQLite) SaveAll(results []scoring.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM results`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear results: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO results(level, name, score, attempts, elapsed_ms, timestamp) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(r.Level, r.Name, r.Score, r.Attempts, r.ElapsedMS, r.Timestamp); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert result: %w", err)
		}
	}
	return tx.Commit()
}
