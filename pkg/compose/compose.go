// Package compose drives the container runtime through its CLI. The process
// exit code and combined output are the whole contract: no structured output
// is parsed beyond line counts and simple substrings.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/execx"
)

// Client issues build, start, stop and list operations against one compose
// project. All queries are read-only; only Build/Up/Down mutate state.
type Client struct {
	Runner  execx.Runner
	Bin     string // container runtime binary, e.g. "docker"
	File    string // compose file path
	Project string // compose project name
	Dir     string // working directory for all invocations
}

const (
	infoTimeout  = 30 * time.Second
	queryTimeout = 60 * time.Second
	buildTimeout = 30 * time.Minute
	upTimeout    = 10 * time.Minute
)

func (c *Client) composeArgs(args ...string) []string {
	base := []string{"compose", "-f", c.File, "-p", c.Project}
	return append(base, args...)
}

// Reachable reports whether the runtime daemon answers at all.
func (c *Client) Reachable(ctx context.Context) bool {
	res, err := c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: []string{"info"}, Dir: c.Dir, Timeout: infoTimeout,
	})
	return err == nil && res.ExitCode == 0
}

// ImageExists reports whether the named image is present locally.
// A non-zero inspect exit means absent; only a spawn failure is an error.
func (c *Client) ImageExists(ctx context.Context, image string) (bool, error) {
	res, err := c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: []string{"image", "inspect", image}, Dir: c.Dir, Timeout: queryTimeout,
	})
	if err != nil {
		return false, errors.Wrapf(err, "image inspect %s", image)
	}
	return res.ExitCode == 0, nil
}

// BuildImage builds one compose service's image.
func (c *Client) BuildImage(ctx context.Context, service string) (execx.Result, error) {
	slog.Info("compose_build_start", "service", service, "project", c.Project)
	return c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: c.composeArgs("build", service), Dir: c.Dir, Timeout: buildTimeout,
	})
}

// BuildAll builds every image the compose file declares.
func (c *Client) BuildAll(ctx context.Context) (execx.Result, error) {
	slog.Info("compose_build_all_start", "project", c.Project)
	return c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: c.composeArgs("build"), Dir: c.Dir, Timeout: buildTimeout,
	})
}

// Up starts the whole service set detached.
func (c *Client) Up(ctx context.Context) (execx.Result, error) {
	slog.Info("compose_up_start", "project", c.Project)
	return c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: c.composeArgs("up", "-d"), Dir: c.Dir, Timeout: upTimeout,
	})
}

// Down stops and removes the service set.
func (c *Client) Down(ctx context.Context) (execx.Result, error) {
	slog.Info("compose_down_start", "project", c.Project)
	return c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: c.composeArgs("down"), Dir: c.Dir, Timeout: upTimeout,
	})
}

// RunningCount counts live service instances via `compose ps -q`.
func (c *Client) RunningCount(ctx context.Context) (int, error) {
	res, err := c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: c.composeArgs("ps", "-q"), Dir: c.Dir, Timeout: queryTimeout,
	})
	if err != nil {
		return 0, errors.Wrap(err, "compose ps")
	}
	if res.ExitCode != 0 {
		return 0, fmt.Errorf("compose ps exited %d: %s", res.ExitCode, res.Tail(5))
	}
	count := 0
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}

// PS returns the human-readable service listing for status display.
func (c *Client) PS(ctx context.Context) (string, error) {
	res, err := c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: c.composeArgs("ps"), Dir: c.Dir, Timeout: queryTimeout,
	})
	if err != nil {
		return "", errors.Wrap(err, "compose ps")
	}
	return res.Output, nil
}
