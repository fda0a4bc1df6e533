// Package journal persists the per-run StepResult record to SQLite so past
// provisioning runs can be inspected after the fact.
package journal

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/workflow"
	_ "modernc.org/sqlite"
)

// Repository provides journal operations.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (and if needed creates) the journal database.
func NewRepository(dbPath string) (*Repository, error) {
	slog.Debug("journal_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal database")
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create journal schema")
	}
	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record appends one finished run and its ordered step results.
func (r *Repository) Record(report workflow.Report, tier string) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin journal transaction")
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (status, model_tier, started_at, finished_at) VALUES (?, ?, ?, ?)`,
		string(report.Status), tier,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert run")
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get run id")
	}

	for i, step := range report.Results {
		_, err := tx.Exec(
			`INSERT INTO run_steps (run_id, seq, name, status, classification, skip_reason, diagnostic, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, step.Name, string(step.Status), string(step.Classification),
			step.SkipReason, step.Diagnostic, step.Duration.Milliseconds(),
		)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to insert step %s", step.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit journal transaction")
	}

	slog.Debug("journal_run_recorded", "run_id", runID, "status", string(report.Status), "steps", len(report.Results))
	return runID, nil
}

// ListRuns returns the newest runs first, up to limit (0 means all).
func (r *Repository) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT id, status, model_tier, started_at, finished_at FROM runs ORDER BY id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = r.db.Query(query)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var tier sql.NullString
		if err := rows.Scan(&run.ID, &run.Status, &tier, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan run row")
		}
		run.ModelTier = tier.String
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// LastRun returns the newest recorded run, or nil when the journal is empty.
func (r *Repository) LastRun() (*Run, error) {
	runs, err := r.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// StepsForRun returns a run's step records in execution order.
func (r *Repository) StepsForRun(runID int64) ([]*StepRecord, error) {
	rows, err := r.db.Query(
		`SELECT run_id, seq, name, status, classification, skip_reason, diagnostic, duration_ms
		 FROM run_steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query run steps")
	}
	defer rows.Close()

	var steps []*StepRecord
	for rows.Next() {
		var s StepRecord
		var class, reason, diag sql.NullString
		if err := rows.Scan(&s.RunID, &s.Seq, &s.Name, &s.Status, &class, &reason, &diag, &s.DurationMS); err != nil {
			return nil, errors.Wrap(err, "failed to scan step row")
		}
		s.Classification = class.String
		s.SkipReason = reason.String
		s.Diagnostic = diag.String
		steps = append(steps, &s)
	}
	return steps, rows.Err()
}

// Prune deletes all but the newest keep runs.
func (r *Repository) Prune(keep int) (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune runs")
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count pruned runs")
	}
	// Cascade may be off depending on driver pragmas; delete orphans directly.
	if _, err := r.db.Exec(`DELETE FROM run_steps WHERE run_id NOT IN (SELECT id FROM runs)`); err != nil {
		return deleted, errors.Wrap(err, "failed to prune orphaned steps")
	}
	if deleted > 0 {
		slog.Info("journal_pruned", "deleted_runs", deleted, "kept", keep)
	}
	return deleted, nil
}
