package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PassRecord is the persisted summary of one train or test pass.
type PassRecord struct {
	PassID string  `json:"pass_id"`
	RunID  string  `json:"run_id"`
	Phase  string  `json:"phase"`
	Epoch  int     `json:"epoch"`
	N      int     `json:"n"`
	SAC    float64 `json:"sac"`
	Top1   float64 `json:"top1"`
	// Loss is the mean training loss, when the caller tracked one.
	Loss      *float64 `json:"loss,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// PassStore persists the per-pass metric history of a run.
type PassStore struct {
	db *sql.DB
}

// NewPassStore creates a new PassStore.
func NewPassStore(db *sql.DB) *PassStore {
	return &PassStore{db: db}
}

// RecordPass stores pass. A pass with the same run, phase and epoch is
// replaced, keeping its original ID.
func (s *PassStore) RecordPass(pass *PassRecord) error {
	if pass.PassID == "" {
		pass.PassID = uuid.New().String()
	}
	if pass.CreatedAt == 0 {
		pass.CreatedAt = time.Now().UnixNano()
	}

	var loss interface{}
	if pass.Loss != nil {
		loss = *pass.Loss
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO selective_passes (pass_id, run_id, phase, epoch, n, sac, top1, loss, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (run_id, phase, epoch) DO UPDATE SET
				n = excluded.n,
				sac = excluded.sac,
				top1 = excluded.top1,
				loss = excluded.loss,
				created_at = excluded.created_at`,
			pass.PassID, pass.RunID, pass.Phase, pass.Epoch, pass.N,
			pass.SAC, pass.Top1, loss, pass.CreatedAt,
		)
		return err
	})
}

// ListPasses returns the passes of a run ordered by phase then epoch. An
// empty phase lists every phase.
func (s *PassStore) ListPasses(runID, phase string) ([]*PassRecord, error) {
	query := `
		SELECT pass_id, run_id, phase, epoch, n, sac, top1, loss, created_at
		FROM selective_passes
		WHERE run_id = ?`
	args := []interface{}{runID}
	if phase != "" {
		query += ` AND phase = ?`
		args = append(args, phase)
	}
	query += ` ORDER BY phase, epoch`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var passes []*PassRecord
	for rows.Next() {
		var p PassRecord
		var loss sql.NullFloat64
		if err := rows.Scan(&p.PassID, &p.RunID, &p.Phase, &p.Epoch, &p.N,
			&p.SAC, &p.Top1, &loss, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		if loss.Valid {
			v := loss.Float64
			p.Loss = &v
		}
		passes = append(passes, &p)
	}
	return passes, rows.Err()
}
