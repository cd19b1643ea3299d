package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/selective.report/internal/selective"
)

// ReportStore persists calibrated coverage reports, one per run and score
// source.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore creates a new ReportStore.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// InsertReport replaces the report stored for (runID, source). Points keep
// their order.
func (s *ReportStore) InsertReport(runID, source string, report selective.CoverageReport) error {
	now := time.Now().UnixNano()
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM selective_coverage_points WHERE run_id = ? AND source = ?`,
			runID, source); err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO selective_coverage_points (
				run_id, source, position, target, coverage, accuracy, threshold, selected, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, p := range report {
			if _, err := stmt.Exec(runID, source, i, p.Target, p.Coverage, p.Accuracy,
				p.Threshold, p.Selected, now); err != nil {
				return fmt.Errorf("insert %s point %v: %w", source, p.Target, err)
			}
		}
		return tx.Commit()
	})
}

// ListReports returns every stored report of a run keyed by score source.
func (s *ReportStore) ListReports(runID string) (map[string]selective.CoverageReport, error) {
	rows, err := s.db.Query(`
		SELECT source, target, coverage, accuracy, threshold, selected
		FROM selective_coverage_points
		WHERE run_id = ?
		ORDER BY source, position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query coverage points: %w", err)
	}
	defer rows.Close()

	reports := make(map[string]selective.CoverageReport)
	for rows.Next() {
		var source string
		var p selective.CoveragePoint
		if err := rows.Scan(&source, &p.Target, &p.Coverage, &p.Accuracy,
			&p.Threshold, &p.Selected); err != nil {
			return nil, fmt.Errorf("scan coverage point: %w", err)
		}
		reports[source] = append(reports[source], p)
	}
	return reports, rows.Err()
}

// DeleteReports removes every report of a run and returns the number of
// points deleted.
func (s *ReportStore) DeleteReports(runID string) (int64, error) {
	var n int64
	err := retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM selective_coverage_points WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	return n, err
}
