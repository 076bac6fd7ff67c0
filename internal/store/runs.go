package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertRun records the start of a populate run
func (s *Store) InsertRun(r *PopulateRun) error {
	if r.Status == "" {
		r.Status = StatusRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO populate_runs (run_id, host, root, table_name, started_at, dry_run, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Host, r.Root, r.Table, r.StartedAt, boolToInt(r.DryRun), r.Status)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counts and outcome of a populate run
func (s *Store) FinishRun(r *PopulateRun) error {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}

	res, err := s.db.Exec(`
		UPDATE populate_runs SET
			completed_at = ?,
			listed = ?,
			energetic = ?,
			calm = ?,
			dramatic = ?,
			inspirational = ?,
			skipped = ?,
			total_rows = ?,
			exit_code = ?,
			status = ?,
			error = ?
		WHERE run_id = ?
	`, r.CompletedAt, r.Listed, r.Energetic, r.Calm, r.Dramatic, r.Inspirational,
		r.Skipped, nullableInt(r.TotalRows), nullableInt(r.ExitCode), r.Status,
		nullableString(r.Error), r.RunID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s not found", r.RunID)
	}
	return nil
}

const runColumns = `
	run_id, COALESCE(host, ''), COALESCE(root, ''), table_name, started_at, completed_at,
	listed, energetic, calm, dramatic, inspirational, skipped,
	total_rows, exit_code, dry_run, status, COALESCE(error, '')`

// GetRun returns a single run, or nil if it does not exist
func (s *Store) GetRun(runID string) (*PopulateRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM populate_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(limit int) ([]*PopulateRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`SELECT `+runColumns+`
		FROM populate_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*PopulateRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of recorded runs by status
func (s *Store) CountRuns() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM populate_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*PopulateRun, error) {
	var r PopulateRun
	var completed sql.NullTime
	var totalRows, exitCode sql.NullInt64
	var dryRun int

	err := row.Scan(
		&r.RunID, &r.Host, &r.Root, &r.Table, &r.StartedAt, &completed,
		&r.Listed, &r.Energetic, &r.Calm, &r.Dramatic, &r.Inspirational, &r.Skipped,
		&totalRows, &exitCode, &dryRun, &r.Status, &r.Error,
	)
	if err != nil {
		return nil, err
	}

	if completed.Valid {
		r.CompletedAt = completed.Time
	}
	r.TotalRows = -1
	if totalRows.Valid {
		r.TotalRows = int(totalRows.Int64)
	}
	r.ExitCode = -1
	if exitCode.Valid {
		r.ExitCode = int(exitCode.Int64)
	}
	r.DryRun = dryRun == 1
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableInt stores negative sentinels as NULL
func nullableInt(v int) any {
	if v < 0 {
		return nil
	}
	return v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
