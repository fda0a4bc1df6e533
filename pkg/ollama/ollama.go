// Package ollama talks to the optional local model-serving daemon. Every
// operation here is recoverable-class for the orchestrator: a missing or
// unreachable daemon degrades the run, it never halts it.
package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agentstack/stackctl/pkg/execx"
)

// Client wraps the daemon's CLI and HTTP surface.
type Client struct {
	Runner  execx.Runner
	Bin     string // "ollama"
	BaseURL string // e.g. "http://localhost:11434"
	HTTP    *http.Client
}

const pullTimeout = 60 * time.Minute // large models over slow links

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 5 * time.Second}
}

// Installed reports whether the daemon CLI is present on the host:
// a version query that exits zero.
func (c *Client) Installed(ctx context.Context) bool {
	res, err := c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: []string{"--version"}, Timeout: 15 * time.Second,
	})
	return err == nil && res.ExitCode == 0
}

// Reachable reports whether the daemon's HTTP API answers the tag listing.
func (c *Client) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// HasModel reports whether the named model is already pulled, by substring
// check on the list output.
func (c *Client) HasModel(ctx context.Context, model string) bool {
	res, err := c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: []string{"list"}, Timeout: 30 * time.Second,
	})
	if err != nil || res.ExitCode != 0 {
		return false
	}
	return strings.Contains(res.Output, model)
}

// Pull fetches a model by name. Non-zero exit is returned as data for the
// calling step to classify.
func (c *Client) Pull(ctx context.Context, model string) (execx.Result, error) {
	slog.Info("ollama_pull_start", "model", model)
	return c.Runner.Run(ctx, execx.Spec{
		Name: c.Bin, Args: []string{"pull", model}, Timeout: pullTimeout,
	})
}
