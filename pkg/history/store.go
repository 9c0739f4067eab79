// Package history persists terminal tool call outcomes to a local sqlite
// database so the host application can audit what an agent did. It is a
// local store queried on demand, not a telemetry emitter.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/harun/toolcore/pkg/scheduler"
	"github.com/harun/toolcore/pkg/tool"
)

// Entry is one recorded tool call.
type Entry struct {
	ID         int64     `json:"id"`
	CallID     string    `json:"call_id"`
	PromptID   string    `json:"prompt_id"`
	ToolName   string    `json:"tool_name"`
	Args       string    `json:"args"`
	State      string    `json:"state"`
	Display    string    `json:"display"`
	Error      string    `json:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Config holds history store configuration.
type Config struct {
	DBPath string
	Logger zerolog.Logger
}

// Store records tool call outcomes in sqlite. It implements
// scheduler.Recorder.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore opens (and if needed creates) the history database.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("history db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: cfg.Logger.With().Str("component", "history").Logger(),
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	store.logger.Info().Str("path", cfg.DBPath).Msg("Tool call history store opened")
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tool_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			call_id TEXT NOT NULL,
			prompt_id TEXT,
			tool_name TEXT NOT NULL,
			args TEXT,
			state TEXT NOT NULL,
			display TEXT,
			error TEXT,
			error_type TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tool_calls_prompt ON tool_calls(prompt_id);
		CREATE INDEX IF NOT EXISTS idx_tool_calls_tool ON tool_calls(tool_name);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// RecordCall implements scheduler.Recorder.
func (s *Store) RecordCall(ctx context.Context, req tool.CallRequest, resp tool.CallResponse, state scheduler.State, started, finished time.Time) error {
	args, err := json.Marshal(req.Args)
	if err != nil {
		args = []byte("{}")
	}

	errText := ""
	if resp.Error != nil {
		errText = resp.Error.Error()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tool_calls
			(call_id, prompt_id, tool_name, args, state, display, error, error_type, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.CallID, req.PromptID, req.Name, string(args), string(state),
		resp.Display, errText, string(resp.ErrorType), started, finished,
	)
	if err != nil {
		return fmt.Errorf("failed to record tool call: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, call_id, prompt_id, tool_name, args, state, display, error, error_type, started_at, finished_at
		FROM tool_calls ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CallID, &e.PromptID, &e.ToolName, &e.Args,
			&e.State, &e.Display, &e.Error, &e.ErrorType, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ForPrompt returns all entries recorded under one prompt id, oldest first.
func (s *Store) ForPrompt(ctx context.Context, promptID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, call_id, prompt_id, tool_name, args, state, display, error, error_type, started_at, finished_at
		FROM tool_calls WHERE prompt_id = ? ORDER BY id ASC`, promptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CallID, &e.PromptID, &e.ToolName, &e.Args,
			&e.State, &e.Display, &e.Error, &e.ErrorType, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
