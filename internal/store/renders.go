package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Render job status values beyond the run statuses
const (
	StatusTriggered   = "triggered"
	StatusRendered    = "done"
	StatusTimedOut    = "timeout"
	StatusInterrupted = "interrupted"
)

// SaveRenderJob inserts or updates a render job
func (s *Store) SaveRenderJob(j *RenderJob) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	if j.Status == "" {
		j.Status = StatusTriggered
	}
	j.UpdatedAt = time.Now()

	_, err := s.db.Exec(`
		INSERT INTO render_jobs
		(job_id, test_name, topic, style, duration_s, render_id, status,
		 video_url, download_path, elapsed_ms, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			render_id = excluded.render_id,
			status = excluded.status,
			video_url = excluded.video_url,
			download_path = excluded.download_path,
			elapsed_ms = excluded.elapsed_ms,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, j.JobID, j.TestName, j.Topic, j.Style, j.DurationSec,
		nullableString(j.RenderID), j.Status, nullableString(j.VideoURL),
		nullableString(j.DownloadPath), j.Elapsed.Milliseconds(),
		nullableString(j.Error), j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save render job: %w", err)
	}
	return nil
}

const renderColumns = `
	job_id, test_name, topic, COALESCE(style, ''), COALESCE(duration_s, 0),
	COALESCE(render_id, ''), status, COALESCE(video_url, ''), COALESCE(download_path, ''),
	COALESCE(elapsed_ms, 0), COALESCE(error, ''), created_at, updated_at`

// GetRenderJob returns a single job, or nil if it does not exist
func (s *Store) GetRenderJob(jobID string) (*RenderJob, error) {
	row := s.db.QueryRow(`SELECT `+renderColumns+` FROM render_jobs WHERE job_id = ?`, jobID)
	j, err := scanRenderJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render job: %w", err)
	}
	return j, nil
}

// RecentRenderJobs returns up to limit jobs, newest first
func (s *Store) RecentRenderJobs(limit int) ([]*RenderJob, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`SELECT `+renderColumns+`
		FROM render_jobs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query render jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*RenderJob
	for rows.Next() {
		j, err := scanRenderJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanRenderJob(row rowScanner) (*RenderJob, error) {
	var j RenderJob
	var elapsedMs int64
	var updated sql.NullTime

	err := row.Scan(
		&j.JobID, &j.TestName, &j.Topic, &j.Style, &j.DurationSec,
		&j.RenderID, &j.Status, &j.VideoURL, &j.DownloadPath,
		&elapsedMs, &j.Error, &j.CreatedAt, &updated,
	)
	if err != nil {
		return nil, err
	}
	j.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	if updated.Valid {
		j.UpdatedAt = updated.Time
	}
	return &j, nil
}
