package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentstack/stackctl/pkg/hardware"
)

// LogEntry is one structured line in a run's accumulated log.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// RunContext is the mutable state threaded through one run. It is created at
// run start, mutated only by the currently executing step (single writer),
// and discarded at run end; only the log outlives the run, persisted by the
// caller.
type RunContext struct {
	InstallDir string
	Hardware   hardware.Profile
	Tier       hardware.Tier
	StartedAt  time.Time

	log []LogEntry
}

// NewRunContext builds the context for one run.
func NewRunContext(installDir string) *RunContext {
	return &RunContext{InstallDir: installDir, StartedAt: time.Now()}
}

// Logf appends a formatted entry to the run log and mirrors it to the
// process logger, so entries are both streamed live and retained for the
// persisted record.
func (rc *RunContext) Logf(level slog.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	rc.log = append(rc.log, LogEntry{Time: time.Now(), Level: level, Message: msg})
	slog.Log(context.Background(), level, msg)
}

// Log returns the accumulated entries in append order.
func (rc *RunContext) Log() []LogEntry {
	out := make([]LogEntry, len(rc.log))
	copy(out, rc.log)
	return out
}
