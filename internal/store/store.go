// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists pipeline runs and their stage snapshots in SQLite
// and mirrors each snapshot to a file under the work directory.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/cv-evaluator/pkg/types"
)

const dbFile = "runs.db"

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned for an unknown run or snapshot.
var ErrNotFound = errors.New("not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one pipeline execution.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	Document   string     `json:"document" yaml:"document"`
	Parent     string     `json:"parent,omitempty" yaml:"parent,omitempty"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Status     Status     `json:"status" yaml:"status"`
	Overall    string     `json:"overall,omitempty" yaml:"overall,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Store manages the runs database.
type Store struct {
	db      *sql.DB
	workDir string
	now     func() time.Time
}

// Open opens or creates workDir/runs.db.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.WorkDir == "" {
		return nil, errors.New("store: work dir is required")
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cfg.WorkDir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, workDir: cfg.WorkDir, now: func() time.Time { return time.Now().UTC() }}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WorkDir returns the directory holding the database and snapshot files.
func (s *Store) WorkDir() string { return s.workDir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			parent TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			overall TEXT,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			stage TEXT NOT NULL,
			json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, stage)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun records a new running run and returns its ID. parent names the
// run a resumed run branched from; it is empty for fresh runs.
func (s *Store) StartRun(ctx context.Context, document, parent string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, document, parent, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		id, document, nullString(parent), s.now().Format(timeFormat), string(StatusRunning),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	if err := os.MkdirAll(s.runDir(id), 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return id, nil
}

// FinishRun marks the run succeeded with the overall rating, or failed
// with runErr.
func (s *Store) FinishRun(ctx context.Context, runID string, overall types.Rating, runErr error) error {
	status, errText := StatusSucceeded, ""
	if runErr != nil {
		status, errText = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, overall = ?, error = ? WHERE id = ?`,
		s.now().Format(timeFormat), string(status), nullString(string(overall)), nullString(errText), runID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// SaveSnapshot stores v as the stage snapshot of the run, replacing any
// earlier one, and mirrors it to <workdir>/<run>/<stage>.json. String
// values are mirrored as <stage>.md.
func (s *Store) SaveSnapshot(ctx context.Context, runID, stage string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s snapshot: %w", stage, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, stage, json, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id, stage) DO UPDATE SET json=excluded.json, created_at=excluded.created_at`,
		runID, stage, string(data), s.now().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("saving %s snapshot: %w", stage, err)
	}

	name, content := stage+".json", data
	if text, ok := v.(string); ok {
		name, content = stage+".md", []byte(text)
	}
	if err := os.MkdirAll(s.runDir(runID), 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.runDir(runID), name), content, 0o644); err != nil {
		return fmt.Errorf("writing %s snapshot file: %w", stage, err)
	}
	return nil
}

// Snapshot returns the JSON stored for stage of the run.
func (s *Store) Snapshot(ctx context.Context, runID, stage string) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json FROM snapshots WHERE run_id = ? AND stage = ?`, runID, stage,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s of run %s: %w", stage, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

// Stages returns the stages saved for the run in the order they were saved.
func (s *Store) Stages(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage FROM snapshots WHERE run_id = ? ORDER BY created_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying stages: %w", err)
	}
	defer rows.Close()

	var stages []string
	for rows.Next() {
		var stage string
		if err := rows.Scan(&stage); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const selectRuns = `SELECT id, document, parent, started_at, finished_at, status, overall, error FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                              Run
		parent, finished, overall, msg sql.NullString
		started, status                string
	)
	if err := sc.Scan(&r.ID, &r.Document, &parent, &started, &finished, &status, &overall, &msg); err != nil {
		return Run{}, err
	}
	r.Parent, r.Overall, r.Error = parent.String, overall.String, msg.String
	r.Status = Status(status)
	t, err := time.Parse(timeFormat, started)
	if err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	r.StartedAt = t
	if finished.Valid {
		f, err := time.Parse(timeFormat, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("parsing finished_at: %w", err)
		}
		r.FinishedAt = &f
	}
	return r, nil
}

func (s *Store) runDir(runID string) string {
	return filepath.Join(s.workDir, runID)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
