package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/agentstack/stackctl/pkg/probe"
)

// Sequencer drives one ordered run of its steps. It owns the step list for
// the duration of a run; the list is never mutated after construction.
type Sequencer struct {
	steps []Step
}

// NewSequencer fixes the step order for subsequent runs.
func NewSequencer(steps []Step) *Sequencer {
	return &Sequencer{steps: steps}
}

// Run executes every step in declaration order against rc.
//
// Per step: precondition -> {Skipped | Eligible} -> action -> postcondition
// -> {Succeeded | Failed}. A fatal failure halts the run with the partial
// result record; a recoverable failure is logged and bypassed. Cancellation
// is observed between steps only, never inside one, so no artifact is left
// half-built by the sequencer itself.
func (s *Sequencer) Run(ctx context.Context, rc *RunContext) (report Report) {
	report = Report{Status: RunSucceeded, StartedAt: rc.StartedAt}
	defer func() { report.FinishedAt = time.Now() }()

	for _, step := range s.steps {
		if ctx.Err() != nil {
			slog.Warn("run_cancelled", "before_step", step.Name)
			report.Status = RunCancelled
			return report
		}

		result := s.runStep(ctx, step, rc)
		report.Results = append(report.Results, result)

		if result.Status == StatusFailed {
			if result.Classification == Fatal {
				slog.Error("run_halted",
					"step", step.Name,
					"kind", string(result.Kind),
					"diagnostic", result.Diagnostic)
				report.Status = RunFailed
				return report
			}
			slog.Warn("step_degraded_continuing", "step", step.Name, "diagnostic", result.Diagnostic)
		}
	}

	// Recoverable failures do not affect the aggregate status.
	return report
}

func (s *Sequencer) runStep(ctx context.Context, step Step, rc *RunContext) StepResult {
	slog.Info("step_start", "step", step.Name)

	// Run cancellation takes effect between steps only; an in-flight step
	// must finish so no artifact is left half-built. Per-command timeouts
	// still apply, they hang off this context, not the run's.
	ctx = context.WithoutCancel(ctx)

	if step.Precondition != nil {
		decision, err := step.Precondition(ctx, rc)
		if err != nil {
			// Cannot even tell whether the step is needed.
			return StepResult{
				Name:           step.Name,
				Status:         StatusFailed,
				Classification: Fatal,
				Kind:           KindPreconditionUnreadable,
				Diagnostic:     err.Error(),
				Remedy:         step.Remedy,
			}
		}
		if decision.Skip {
			slog.Info("step_skipped", "step", step.Name, "reason", decision.Reason)
			return StepResult{Name: step.Name, Status: StatusSkipped, SkipReason: decision.Reason}
		}
	}

	start := time.Now()
	err := step.Action(ctx, rc)
	kind := KindActionFailed
	if err == nil && step.Postcondition != nil {
		err = step.Postcondition(ctx, rc)
		if err != nil {
			kind = KindPostconditionTimedOut
			if !errors.Is(err, probe.ErrTimedOut) {
				kind = KindActionFailed
			}
		}
	}
	duration := time.Since(start)

	if err != nil {
		return StepResult{
			Name:           step.Name,
			Status:         StatusFailed,
			Duration:       duration,
			Classification: step.OnFailure,
			Kind:           kind,
			Diagnostic:     err.Error(),
			Remedy:         step.Remedy,
		}
	}

	slog.Info("step_succeeded", "step", step.Name, "duration_ms", duration.Milliseconds())
	return StepResult{Name: step.Name, Status: StatusSucceeded, Duration: duration}
}
