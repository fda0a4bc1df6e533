// Package execx runs external commands and reports their outcome as data.
// A non-zero exit status is not an error: callers inspect Result.ExitCode.
// The returned error is reserved for failures to spawn the process at all.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ExitTimedOut is the exit code reported when a command is killed because
// its timeout elapsed. os/exec also reports -1 for any signal-killed child,
// so Result.TimedOut, not the exit code, is the authoritative timeout signal.
const ExitTimedOut = -1

// Spec describes one command invocation.
type Spec struct {
	Name    string
	Args    []string
	Dir     string            // working directory; empty means inherit
	Env     map[string]string // additional environment variables
	Timeout time.Duration     // 0 means no timeout
}

// Result is the outcome of one command invocation.
type Result struct {
	ExitCode int
	Output   string // combined stdout+stderr, in arrival order
	Duration time.Duration
	// TimedOut is set only when the command was killed by its own timeout,
	// never for children killed by an external signal.
	TimedOut bool
}

// Tail returns the last n lines of the captured output, for diagnostics.
func (r Result) Tail(n int) string {
	lines := strings.Split(strings.TrimRight(r.Output, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Runner executes external commands. The OS implementation is OSRunner;
// tests substitute scripted fakes.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// OSRunner runs commands via os/exec. Observer, when set, receives the same
// combined output bytes in the same order as the buffered Result.Output.
type OSRunner struct {
	Observer io.Writer
}

func (r *OSRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = environWith(spec.Env)
	setSysProcAttr(cmd)
	cmd.Cancel = func() error { return terminate(cmd) }

	var buf bytes.Buffer
	var sink io.Writer = &buf
	if r.Observer != nil {
		sink = io.MultiWriter(&buf, r.Observer)
	}
	// Single writer for both streams keeps the combined order stable.
	cmd.Stdout = sink
	cmd.Stderr = sink

	slog.Debug("exec_start", "name", spec.Name, "args", strings.Join(spec.Args, " "))

	start := time.Now()
	err := cmd.Run()
	res := Result{Output: buf.String(), Duration: time.Since(start)}

	switch {
	case err == nil:
		res.ExitCode = 0
	case runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		res.ExitCode = ExitTimedOut
		res.TimedOut = true
		slog.Warn("exec_timed_out", "name", spec.Name, "timeout", spec.Timeout)
		err = nil
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			err = nil
		}
	}

	if err != nil {
		slog.Error("exec_spawn_failed", "name", spec.Name, "error", err)
		return res, err
	}

	slog.Debug("exec_done", "name", spec.Name, "exit_code", res.ExitCode, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func environWith(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
