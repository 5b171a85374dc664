package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/adventure"
	"github.com/AaronLay10/AdventureEngine/internal/config"
	"github.com/AaronLay10/AdventureEngine/internal/events"
	_ "github.com/lib/pq"
)

// EventRow represents an event stored in Postgres.
type EventRow struct {
	EventID    int64                  `json:"event_id"`
	Timestamp  time.Time              `json:"ts"`
	Level      string                 `json:"level"`
	Event      string                 `json:"event"`
	Message    *string                `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	InstanceID string                 `json:"instance_id"`
	LearnerID  *string                `json:"learner_id,omitempty"`
}

// Client manages the Postgres connection for event and progress storage.
type Client struct {
	db         *sql.DB
	instanceID string
}

// New creates a new Postgres client using environment variables.
// PGPASSWORD supports the *_FILE convention.
func New(instanceID string) (*Client, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "adventure")
	dbname := getEnv("PGDATABASE", "adventure")
	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return nil, err
	}

	var connStr string
	if password != "" {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	} else {
		connStr = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			host, port, user, dbname)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:         db,
		instanceID: instanceID,
	}

	if err := client.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return client, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			event_id    BIGSERIAL PRIMARY KEY,
			ts          TIMESTAMPTZ NOT NULL,
			level       TEXT NOT NULL,
			event       TEXT NOT NULL,
			msg         TEXT,
			fields      JSONB,
			instance_id TEXT NOT NULL,
			learner_id  TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_instance_id ON events(instance_id);

		CREATE TABLE IF NOT EXISTS progress (
			adventure_id TEXT NOT NULL,
			learner_id   TEXT NOT NULL,
			step_name    TEXT NOT NULL,
			choices      JSONB,
			updated_at   TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (adventure_id, learner_id)
		);
	`
	_, err := c.db.Exec(query)
	return err
}

// Name identifies the client as an event sink.
func (c *Client) Name() string {
	return "postgres"
}

// Append inserts an emitted event. A learner_id field is lifted into its
// own column.
func (c *Client) Append(e events.Event) error {
	var fieldsJSON []byte
	var err error
	if e.Fields != nil {
		fieldsJSON, err = json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if e.Message != "" {
		msgPtr = &e.Message
	}

	var learnerPtr *string
	if learner, ok := e.Fields["learner_id"].(string); ok && learner != "" {
		learnerPtr = &learner
	}

	ts := e.Time()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO events (ts, level, event, msg, fields, instance_id, learner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.Exec(query, ts, e.Level, e.Name, msgPtr, fieldsJSON, c.instanceID, learnerPtr)
	return err
}

// Query returns the last N events from the database in descending order by timestamp.
func (c *Client) Query(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	query := `
		SELECT event_id, ts, level, event, msg, fields, instance_id, learner_id
		FROM events
		WHERE instance_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.instanceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, learnerID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.InstanceID, &learnerID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if learnerID.Valid {
			e.LearnerID = &learnerID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

// Load implements adventure.ProgressStore.
func (c *Client) Load(ctx context.Context, adventureID, learnerID string) (adventure.Progress, error) {
	var p adventure.Progress
	var choicesJSON []byte

	err := c.db.QueryRowContext(ctx,
		`SELECT step_name, choices FROM progress WHERE adventure_id = $1 AND learner_id = $2`,
		adventureID, learnerID,
	).Scan(&p.StepName, &choicesJSON)
	if err == sql.ErrNoRows {
		return adventure.Progress{}, nil
	}
	if err != nil {
		return adventure.Progress{}, err
	}

	if len(choicesJSON) > 0 {
		if err := json.Unmarshal(choicesJSON, &p.Choices); err != nil {
			return adventure.Progress{}, fmt.Errorf("failed to unmarshal choices: %w", err)
		}
	}
	return p, nil
}

// Save implements adventure.ProgressStore.
func (c *Client) Save(ctx context.Context, adventureID, learnerID string, p adventure.Progress) error {
	var choicesJSON []byte
	if len(p.Choices) > 0 {
		var err error
		choicesJSON, err = json.Marshal(p.Choices)
		if err != nil {
			return fmt.Errorf("failed to marshal choices: %w", err)
		}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO progress (adventure_id, learner_id, step_name, choices, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (adventure_id, learner_id)
		DO UPDATE SET step_name = EXCLUDED.step_name, choices = EXCLUDED.choices, updated_at = EXCLUDED.updated_at
	`, adventureID, learnerID, p.StepName, choicesJSON, time.Now().UTC())
	return err
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
