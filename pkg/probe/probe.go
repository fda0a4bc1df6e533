// Package probe polls a readiness condition until it holds or a bounded
// number of attempts is exhausted. Wall-clock time for one wait is capped at
// MaxAttempts*Interval; a wait never blocks indefinitely.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/agentstack/stackctl/pkg/execx"
)

// ErrTimedOut is returned when every attempt failed within the bound.
var ErrTimedOut = errors.New("probe: timed out waiting for readiness")

// Check is one readiness wait. Interval and MaxAttempts are tunable per call
// site: a database settles in seconds, a GPU-backed model daemon in minutes.
type Check struct {
	Name        string
	Probe       func(ctx context.Context) bool
	Interval    time.Duration
	MaxAttempts int
}

// Await evaluates the probe up to MaxAttempts times, sleeping Interval
// between failed attempts. It returns nil as soon as the probe succeeds
// (no trailing sleep), ErrTimedOut when attempts are exhausted, or the
// context error on cancellation.
func Await(ctx context.Context, c Check) error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("probe: max attempts must be positive, got %d", c.MaxAttempts)
	}

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		if c.Probe(ctx) {
			slog.Debug("probe_ready", "name", c.Name, "attempt", attempt)
			return nil
		}
		slog.Debug("probe_not_ready", "name", c.Name, "attempt", attempt, "max_attempts", c.MaxAttempts)

		if attempt == c.MaxAttempts {
			break
		}
		select {
		case <-time.After(c.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	slog.Warn("probe_timed_out", "name", c.Name, "attempts", c.MaxAttempts, "interval", c.Interval)
	return ErrTimedOut
}

// TCP returns a probe that succeeds when a TCP connection to addr opens.
func TCP(addr string) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

// HTTP returns a probe that succeeds when a GET to url yields wantStatus.
func HTTP(client *http.Client, url string, wantStatus int) func(ctx context.Context) bool {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == wantStatus
	}
}

// Command returns a probe that succeeds when the command exits zero.
func Command(runner execx.Runner, name string, args ...string) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		res, err := runner.Run(ctx, execx.Spec{Name: name, Args: args, Timeout: 30 * time.Second})
		return err == nil && res.ExitCode == 0
	}
}
