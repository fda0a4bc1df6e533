// Package workflow implements the provisioning step sequencer: a fixed,
// ordered list of steps, each with a precondition, an action, a
// postcondition, and a failure classification. Steps run strictly one at a
// time in declaration order; resumability comes from preconditions
// re-deriving "is this already done?" from external state, never from saved
// sequencer state.
package workflow

import (
	"context"
	"time"
)

// Classification controls whether a failed step halts the run.
type Classification string

const (
	// Fatal failures stop the sequence immediately.
	Fatal Classification = "fatal"
	// Recoverable failures are logged and bypassed; the run continues.
	Recoverable Classification = "recoverable"
)

// FailureKind is the error taxonomy for a failed step.
type FailureKind string

const (
	// KindPreconditionUnreadable: the step's precondition could not even be
	// evaluated. Always treated as Fatal regardless of the step's own class.
	KindPreconditionUnreadable FailureKind = "precondition_unreadable"
	// KindActionFailed: the step's action reported failure.
	KindActionFailed FailureKind = "action_failed"
	// KindPostconditionTimedOut: readiness was not observed within bound.
	KindPostconditionTimedOut FailureKind = "postcondition_timed_out"
)

// SkipDecision is the outcome of a precondition check.
type SkipDecision struct {
	Skip   bool
	Reason string
}

// SkipBecause reports the step's goal as already met.
func SkipBecause(reason string) SkipDecision { return SkipDecision{Skip: true, Reason: reason} }

// Proceed reports the step as eligible to run.
func Proceed() SkipDecision { return SkipDecision{} }

// Step is one named unit of work. Steps are immutable once defined; the
// sequence is fixed at sequencer construction.
type Step struct {
	Name string
	// Precondition decides whether the goal is already met. A returned error
	// means the state could not be read at all and is always fatal.
	// Nil means the step always runs.
	Precondition func(ctx context.Context, rc *RunContext) (SkipDecision, error)
	// Action performs the work. Required.
	Action func(ctx context.Context, rc *RunContext) error
	// Postcondition verifies the action's effect is observable, typically via
	// a readiness probe. Nil means the action's own result suffices.
	Postcondition func(ctx context.Context, rc *RunContext) error
	// OnFailure classifies action/postcondition failures.
	OnFailure Classification
	// Remedy is a suggested remediation string surfaced on fatal failure.
	Remedy string
}

// StepStatus is a step's terminal state within one run.
type StepStatus string

const (
	StatusSkipped   StepStatus = "skipped"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
)

// StepResult records one step's outcome. The ordered sequence of results is
// the run's outcome record.
type StepResult struct {
	Name           string
	Status         StepStatus
	SkipReason     string
	Duration       time.Duration
	Classification Classification // set when Status == StatusFailed
	Kind           FailureKind    // set when Status == StatusFailed
	Diagnostic     string         // set when Status == StatusFailed
	Remedy         string         // set when Status == StatusFailed
}

// RunStatus is the terminal status of a whole run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Report is the full outcome of one sequencer run.
type Report struct {
	Status     RunStatus
	Results    []StepResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// FatalResult returns the fatally failed step's result, if any.
func (r *Report) FatalResult() *StepResult {
	for i := range r.Results {
		res := &r.Results[i]
		if res.Status == StatusFailed && res.Classification == Fatal {
			return res
		}
	}
	return nil
}

// ExitCode maps the run status to the process exit code contract:
// 0 success, 1 fatal failure, 2 cancelled.
func (r *Report) ExitCode() int {
	switch r.Status {
	case RunSucceeded:
		return 0
	case RunCancelled:
		return 2
	default:
		return 1
	}
}
