package store

// Schema v1 - run history
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per music library populate run
CREATE TABLE IF NOT EXISTS populate_runs (
  run_id TEXT PRIMARY KEY,
  host TEXT,
  root TEXT,
  table_name TEXT NOT NULL,
  started_at DATETIME NOT NULL,
  completed_at DATETIME,
  listed INTEGER DEFAULT 0,
  energetic INTEGER DEFAULT 0,
  calm INTEGER DEFAULT 0,
  dramatic INTEGER DEFAULT 0,
  inspirational INTEGER DEFAULT 0,
  skipped INTEGER DEFAULT 0,
  total_rows INTEGER,
  exit_code INTEGER,
  dry_run INTEGER DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'running',
  error TEXT
);

CREATE INDEX IF NOT EXISTS idx_populate_runs_started ON populate_runs(started_at);

-- One row per tutorial video generation attempt
CREATE TABLE IF NOT EXISTS render_jobs (
  job_id TEXT PRIMARY KEY,
  test_name TEXT NOT NULL,
  topic TEXT NOT NULL,
  style TEXT,
  duration_s INTEGER,
  render_id TEXT,
  status TEXT NOT NULL DEFAULT 'triggered',
  video_url TEXT,
  download_path TEXT,
  elapsed_ms INTEGER,
  error TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_render_jobs_created ON render_jobs(created_at);
CREATE INDEX IF NOT EXISTS idx_render_jobs_render_id ON render_jobs(render_id);
`
