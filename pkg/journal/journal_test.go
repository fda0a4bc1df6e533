package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstack/stackctl/pkg/workflow"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleReport(status workflow.RunStatus) workflow.Report {
	now := time.Now()
	return workflow.Report{
		Status:     status,
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Results: []workflow.StepResult{
			{Name: "verify-config", Status: workflow.StatusSkipped, SkipReason: "config present"},
			{Name: "build-base-image", Status: workflow.StatusSucceeded, Duration: 42 * time.Second},
			{
				Name:           "pull-tier-model",
				Status:         workflow.StatusFailed,
				Classification: workflow.Recoverable,
				Diagnostic:     "daemon unreachable",
				Duration:       3 * time.Second,
			},
		},
	}
}

func TestRecordAndReadBack(t *testing.T) {
	repo := testRepo(t)

	runID, err := repo.Record(sampleReport(workflow.RunSucceeded), "balanced")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	last, err := repo.LastRun()
	if err != nil {
		t.Fatalf("last run failed: %v", err)
	}
	if last == nil || last.ID != runID {
		t.Fatalf("expected last run %d, got %+v", runID, last)
	}
	if last.Status != "succeeded" || last.ModelTier != "balanced" {
		t.Errorf("unexpected run row: %+v", last)
	}

	steps, err := repo.StepsForRun(runID)
	if err != nil {
		t.Fatalf("steps query failed: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 step rows, got %d", len(steps))
	}
	wantOrder := []string{"verify-config", "build-base-image", "pull-tier-model"}
	for i, s := range steps {
		if s.Name != wantOrder[i] || s.Seq != i {
			t.Errorf("step %d out of order: %+v", i, s)
		}
	}
	if steps[2].Classification != "recoverable" || steps[2].Diagnostic == "" {
		t.Errorf("failure detail not persisted: %+v", steps[2])
	}
}

func TestLastRun_EmptyJournal(t *testing.T) {
	repo := testRepo(t)
	last, err := repo.LastRun()
	if err != nil {
		t.Fatalf("last run failed: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil for empty journal, got %+v", last)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	repo := testRepo(t)
	first, _ := repo.Record(sampleReport(workflow.RunFailed), "minimal")
	second, _ := repo.Record(sampleReport(workflow.RunSucceeded), "minimal")

	runs, err := repo.ListRuns(0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].ID != first {
		t.Errorf("unexpected ordering: %+v", runs)
	}
}

func TestPrune(t *testing.T) {
	repo := testRepo(t)
	for i := 0; i < 5; i++ {
		if _, err := repo.Record(sampleReport(workflow.RunSucceeded), "minimal"); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	deleted, err := repo.Prune(2)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 pruned runs, got %d", deleted)
	}

	runs, _ := repo.ListRuns(0)
	if len(runs) != 2 {
		t.Errorf("expected 2 surviving runs, got %d", len(runs))
	}
	// No orphaned step rows may survive.
	for _, run := range runs {
		if _, err := repo.StepsForRun(run.ID); err != nil {
			t.Fatalf("steps for surviving run failed: %v", err)
		}
	}
}
