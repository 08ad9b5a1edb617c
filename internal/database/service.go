package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"proxycrawl/internal/database/models/model"
	"proxycrawl/internal/database/models/table"
	"proxycrawl/internal/logger"

	. "github.com/go-jet/jet/v2/sqlite"
)

// Service records harvest history
type Service struct {
	db     *DB
	logger *logger.Logger
}

// NewService creates a new database service
func NewService(db *DB) *Service {
	return &Service{
		db:     db,
		logger: logger.New("database"),
	}
}

// RecordRun stores the summary row of a finished harvest
func (s *Service) RecordRun(ctx context.Context, run model.HarvestRuns) error {
	stmt := table.HarvestRuns.INSERT(
		table.HarvestRuns.RunID,
		table.HarvestRuns.SourceURL,
		table.HarvestRuns.Candidates,
		table.HarvestRuns.Working,
		table.HarvestRuns.StartedAt,
		table.HarvestRuns.FinishedAt,
	).VALUES(
		run.RunID,
		run.SourceURL,
		run.Candidates,
		run.Working,
		String(formatTime(run.StartedAt)),
		String(formatTime(run.FinishedAt)),
	)

	if _, err := stmt.ExecContext(ctx, s.db); err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}

	return nil
}

// RecordChecks stores every probe of a run in a single transaction
func (s *Service) RecordChecks(ctx context.Context, runID string, checks []CheckRecord) error {
	if len(checks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO proxy_checks (run_id, address, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare check statement: %w", err)
	}
	defer insertStmt.Close()

	for _, check := range checks {
		var errMsg sql.NullString
		if check.Error != nil {
			errMsg = sql.NullString{String: check.Error.Error(), Valid: true}
		}

		_, err = insertStmt.ExecContext(ctx,
			runID,
			check.Address,
			check.Status,
			int32(check.ResponseTime.Milliseconds()),
			errMsg,
			formatTime(check.CheckedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to record check for %s: %w", check.Address, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.DebugBg("Recorded %d proxy checks for run %s", len(checks), runID)
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]model.HarvestRuns, error) {
	stmt := SELECT(
		table.HarvestRuns.AllColumns,
	).FROM(
		table.HarvestRuns,
	).ORDER_BY(
		table.HarvestRuns.FinishedAt.DESC(),
		table.HarvestRuns.ID.DESC(),
	).LIMIT(int64(limit))

	var runs []model.HarvestRuns
	if err := stmt.QueryContext(ctx, s.db, &runs); err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}

	return runs, nil
}

// WorkingRate returns the share of healthy probes recorded for address and
// the number of probes it is based on
func (s *Service) WorkingRate(ctx context.Context, address string) (float64, int, error) {
	var total int
	var healthy sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(CASE WHEN status = 'healthy' THEN 1 ELSE 0 END)
		FROM proxy_checks
		WHERE address = ?
	`, address).Scan(&total, &healthy)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get working rate for %s: %w", address, err)
	}

	if total == 0 {
		return 0, 0, nil
	}

	return float64(healthy.Int64) / float64(total), total, nil
}

// Cleanup removes runs and checks older than maxAge and reports how many
// check rows were deleted
func (s *Service) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-maxAge))

	res, err := s.db.ExecContext(ctx, `DELETE FROM proxy_checks WHERE checked_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old checks: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM harvest_runs WHERE finished_at < ?`, cutoff); err != nil {
		return removed, fmt.Errorf("failed to cleanup old runs: %w", err)
	}

	return removed, nil
}

// GetStats returns totals over the recorded history
func (s *Service) GetStats(ctx context.Context) (HistoryStats, error) {
	var stats HistoryStats

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM harvest_runs").Scan(&stats.Runs); err != nil {
		return stats, fmt.Errorf("failed to count runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM proxy_checks GROUP BY status")
	if err != nil {
		return stats, fmt.Errorf("failed to group checks: %w", err)
	}
	defer rows.Close()

	stats.ByStatus = make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan status row: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Checks += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to read status rows: %w", err)
	}

	stats.Healthy = stats.ByStatus["healthy"]
	return stats, nil
}
