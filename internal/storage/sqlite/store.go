// Package sqlite persists learner progress in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/adventure"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	adventure_id TEXT NOT NULL,
	learner_id   TEXT NOT NULL,
	step_name    TEXT NOT NULL,
	choices_json TEXT NOT NULL DEFAULT '{}',
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (adventure_id, learner_id)
);
`

// Store is a SQLite-backed adventure.ProgressStore.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at path, creating the schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Load returns the saved progress, or a zero Progress for an unknown learner.
func (s *Store) Load(ctx context.Context, adventureID, learnerID string) (adventure.Progress, error) {
	var p adventure.Progress
	var choicesJSON string

	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT step_name, choices_json FROM progress WHERE adventure_id = ? AND learner_id = ?`,
		adventureID, learnerID,
	).Scan(&p.StepName, &choicesJSON)
	if err == sql.ErrNoRows {
		return adventure.Progress{}, nil
	}
	if err != nil {
		return adventure.Progress{}, fmt.Errorf("load progress: %w", err)
	}

	if err := json.Unmarshal([]byte(choicesJSON), &p.Choices); err != nil {
		return adventure.Progress{}, fmt.Errorf("decode choices: %w", err)
	}
	if len(p.Choices) == 0 {
		p.Choices = nil
	}
	return p, nil
}

// Save upserts the learner's progress.
func (s *Store) Save(ctx context.Context, adventureID, learnerID string, p adventure.Progress) error {
	choices := p.Choices
	if choices == nil {
		choices = map[string]string{}
	}
	choicesJSON, err := json.Marshal(choices)
	if err != nil {
		return fmt.Errorf("encode choices: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO progress (adventure_id, learner_id, step_name, choices_json, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(adventure_id, learner_id) DO UPDATE SET
		   step_name = excluded.step_name,
		   choices_json = excluded.choices_json,
		   updated_at = excluded.updated_at`,
		adventureID, learnerID, p.StepName, string(choicesJSON), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
