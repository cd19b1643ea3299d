package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Run is one evaluation run: the settings every pass in it shares.
type Run struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Loss      string    `json:"loss"`
	Risk      float64   `json:"risk"`
	Coverages []float64 `json:"coverages"`
	CreatedAt int64     `json:"created_at"`
}

// RunStore persists evaluation runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts run. An empty RunID is filled with a fresh UUID and a
// zero CreatedAt with the current time.
func (s *RunStore) CreateRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	covJSON, err := json.Marshal(run.Coverages)
	if err != nil {
		return fmt.Errorf("marshal coverages: %w", err)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO selective_runs (run_id, name, loss, risk, coverages_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Name, run.Loss, run.Risk, string(covJSON), run.CreatedAt,
		)
		return err
	})
}

// GetRun returns the run with the given ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, name, loss, risk, coverages_json, created_at
		FROM selective_runs
		WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return run, err
}

// ListRuns returns runs, newest first. Runs are filtered by name unless
// name is empty.
func (s *RunStore) ListRuns(name string) ([]*Run, error) {
	query := `SELECT run_id, name, loss, risk, coverages_json, created_at FROM selective_runs`
	var args []interface{}
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var covJSON string
	if err := row.Scan(&run.RunID, &run.Name, &run.Loss, &run.Risk, &covJSON, &run.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(covJSON), &run.Coverages); err != nil {
		return nil, fmt.Errorf("decode coverages of run %s: %w", run.RunID, err)
	}
	return &run, nil
}
