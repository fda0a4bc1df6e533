package journal

// Schema defines the SQLite schema for the run journal: one row per
// orchestrator run and one row per step result, in execution order.
// The journal is write-only history for `stackctl runs` / `status`; the
// orchestrator never reads it to decide what to do next.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    status TEXT NOT NULL CHECK(status IN ('succeeded', 'failed', 'cancelled')),
    model_tier TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS run_steps (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    name TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('skipped', 'succeeded', 'failed')),
    classification TEXT,
    skip_reason TEXT,
    diagnostic TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_steps_run_id ON run_steps(run_id);
`

// Run is one recorded orchestrator run.
type Run struct {
	ID         int64
	Status     string
	ModelTier  string
	StartedAt  string
	FinishedAt string
}

// StepRecord is one recorded step result.
type StepRecord struct {
	RunID          int64
	Seq            int
	Name           string
	Status         string
	Classification string
	SkipReason     string
	Diagnostic     string
	DurationMS     int64
}
