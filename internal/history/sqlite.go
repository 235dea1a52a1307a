// Package history provides SQLite-based persistence for finished game
// sessions. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/dvjones/twenty48/internal/session"
)

// Store manages the SQLite database connection for session history.
type Store struct {
	db *sql.DB
}

// Entry represents one finished session.
type Entry struct {
	ID           int64
	SessionID    string
	Score        int
	Moves        int
	MaxTile      int
	Outcome      string
	DurationSecs int
	CreatedAt    time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("history: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			score INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			max_tile INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_top ON sessions(score DESC);
		CREATE INDEX IF NOT EXISTS idx_sessions_outcome ON sessions(outcome);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save records a finished session. Returns the ID of the inserted row.
func (s *Store) Save(e Entry) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO sessions (session_id, score, moves, max_tile, outcome, duration_secs)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Score, e.Moves, e.MaxTile, e.Outcome, e.DurationSecs,
	)
	if err != nil {
		return 0, fmt.Errorf("history: cannot save session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// TopScores retrieves the N best sessions, ordered by score descending.
func (s *Store) TopScores(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, score, moves, max_tile, outcome, duration_secs, created_at
		 FROM sessions
		 ORDER BY score DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: cannot query sessions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent retrieves the most recently finished sessions.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, score, moves, max_tile, outcome, duration_secs, created_at
		 FROM sessions
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: cannot query sessions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Stats contains aggregated statistics over all recorded sessions.
type Stats struct {
	GamesCount int
	HighScore  int
	AvgScore   float64
	TotalMoves int64
	Wins       int
	LastPlayed time.Time
}

// GetStats retrieves aggregated statistics for all recorded sessions.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(AVG(score), 0), COALESCE(SUM(moves), 0)
		 FROM sessions`,
	).Scan(&stats.GamesCount, &stats.HighScore, &stats.AvgScore, &stats.TotalMoves)
	if err != nil {
		return nil, fmt.Errorf("history: cannot get stats: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE outcome IN (?, ?)`,
		string(session.OutcomeWonQuit), string(session.OutcomeWonUnplayable),
	).Scan(&stats.Wins)
	if err != nil {
		return nil, fmt.Errorf("history: cannot count wins: %w", err)
	}

	var lastPlayed any
	err = s.db.QueryRow(
		`SELECT created_at FROM sessions ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&lastPlayed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: cannot get last played: %w", err)
	}
	if err == nil {
		stats.LastPlayed = scanTime(lastPlayed)
	}

	return stats, nil
}

// Clear deletes all recorded sessions.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM sessions")
	if err != nil {
		return fmt.Errorf("history: cannot clear sessions: %w", err)
	}
	return nil
}

// SaveResult implements session.ResultSaver. This adapter lets the
// session controller record finished games without a direct storage
// dependency.
func (s *Store) SaveResult(result session.Result) error {
	entry := Entry{
		SessionID:    result.SessionID.String(),
		Score:        result.Score,
		Moves:        result.Moves,
		MaxTile:      result.MaxTile,
		Outcome:      string(result.Outcome),
		DurationSecs: int(result.Duration / time.Second),
	}
	_, err := s.Save(entry)
	return err
}

// Ensure Store implements ResultSaver
var _ session.ResultSaver = (*Store)(nil)

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Score, &e.Moves, &e.MaxTile,
			&e.Outcome, &e.DurationSecs, &createdAt); err != nil {
			return nil, fmt.Errorf("history: cannot scan row: %w", err)
		}
		e.CreatedAt = scanTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: row iteration error: %w", err)
	}

	return entries, nil
}

// scanTime parses a datetime column - handles both time.Time and string.
func scanTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
