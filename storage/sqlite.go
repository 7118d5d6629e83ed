// SQLite storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStorage implements Store using SQLite.
// Runs are stored as a JSON document plus the columns listings need.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	// Create parent directory if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	return initSqlite(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each pooled connection would get its own empty in-memory database.
	db.SetMaxOpenConns(1)

	return initSqlite(db)
}

func initSqlite(db *sql.DB) (*SqliteStorage, error) {
	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			score REAL NOT NULL DEFAULT 0,
			iterations INTEGER NOT NULL DEFAULT 0,
			stop_reason TEXT NOT NULL DEFAULT '',
			has_answer INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created
		ON runs(created_at DESC);

		CREATE TABLE IF NOT EXISTS seen_sources (
			url TEXT PRIMARY KEY,
			first_seen INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun inserts or replaces a run.
func (s *SqliteStorage) SaveRun(ctx context.Context, run Run) error {
	if run.ID() == "" {
		return fmt.Errorf("cannot save run without an id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	sum := run.Summary()
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(id, question, provider, score, iterations, stop_reason, has_answer, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID,
		sum.Question,
		sum.Provider,
		sum.Score,
		sum.Iterations,
		sum.StopReason,
		sum.HasAnswer,
		run.CreatedAt.UnixNano(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

// resolveID maps an ID or prefix to a stored ID.
func (s *SqliteStorage) resolveID(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrRunNotFound
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(id)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 16`, escaped+"%")
	if err != nil {
		return "", fmt.Errorf("failed to query run ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var candidate string
		if err := rows.Scan(&candidate); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, candidate)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating run ids: %w", err)
	}
	return matchID(id, ids)
}

// GetRun loads a run by ID or unique prefix.
func (s *SqliteStorage) GetRun(ctx context.Context, id string) (Run, error) {
	full, err := s.resolveID(ctx, id)
	if err != nil {
		return Run{}, err
	}

	var payload string
	err = s.db.QueryRowContext(ctx, "SELECT payload FROM runs WHERE id = ?", full).Scan(&payload)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run: %w", err)
	}

	var run Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return Run{}, fmt.Errorf("failed to decode run %s: %w", full, err)
	}
	return run, nil
}

// ListRuns lists runs newest first.
func (s *SqliteStorage) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, provider, score, iterations, stop_reason, has_answer, created_at
		FROM runs
		ORDER BY created_at DESC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{} // Start with empty slice, not nil
	for rows.Next() {
		var sum RunSummary
		var created int64
		if err := rows.Scan(&sum.ID, &sum.Question, &sum.Provider, &sum.Score,
			&sum.Iterations, &sum.StopReason, &sum.HasAnswer, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created)
		runs = append(runs, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun deletes a run by ID or unique prefix.
func (s *SqliteStorage) DeleteRun(ctx context.Context, id string) error {
	full, err := s.resolveID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", full); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// SourceStorage implementation

// AddSources records URLs as seen.
func (s *SqliteStorage) AddSources(ctx context.Context, urls []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO seen_sources (url, first_seen) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, u := range urls {
		if u = strings.TrimSpace(u); u == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, u, now); err != nil {
			return fmt.Errorf("failed to insert source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Sources returns all recorded URLs, sorted.
func (s *SqliteStorage) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT url FROM seen_sources ORDER BY url ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}
	return urls, nil
}

// ClearSources forgets all recorded URLs.
func (s *SqliteStorage) ClearSources(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM seen_sources"); err != nil {
		return fmt.Errorf("failed to clear sources: %w", err)
	}
	return nil
}

// Verify SqliteStorage implements Store
var _ Store = (*SqliteStorage)(nil)
