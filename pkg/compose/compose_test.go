package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agentstack/stackctl/pkg/execx"
)

// fakeRunner maps a joined command line prefix to a scripted result and
// records every invocation.
type fakeRunner struct {
	results map[string]execx.Result
	err     error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, spec execx.Spec) (execx.Result, error) {
	line := spec.Name + " " + strings.Join(spec.Args, " ")
	f.calls = append(f.calls, line)
	if f.err != nil {
		return execx.Result{}, f.err
	}
	for prefix, res := range f.results {
		if strings.HasPrefix(line, prefix) {
			return res, nil
		}
	}
	return execx.Result{ExitCode: 0}, nil
}

func newClient(r execx.Runner) *Client {
	return &Client{Runner: r, Bin: "docker", File: "compose.yaml", Project: "agentstack"}
}

func TestReachable(t *testing.T) {
	up := &fakeRunner{results: map[string]execx.Result{"docker info": {ExitCode: 0}}}
	if !newClient(up).Reachable(context.Background()) {
		t.Error("expected reachable when info exits zero")
	}

	down := &fakeRunner{results: map[string]execx.Result{"docker info": {ExitCode: 1, Output: "Cannot connect to the Docker daemon"}}}
	if newClient(down).Reachable(context.Background()) {
		t.Error("expected unreachable when info exits non-zero")
	}
}

func TestImageExists(t *testing.T) {
	r := &fakeRunner{results: map[string]execx.Result{
		"docker image inspect agentstack-base": {ExitCode: 0},
		"docker image inspect agentstack-api":  {ExitCode: 1, Output: "Error: No such image"},
	}}
	c := newClient(r)

	exists, err := c.ImageExists(context.Background(), "agentstack-base")
	if err != nil || !exists {
		t.Errorf("expected base image present, got %v %v", exists, err)
	}
	exists, err = c.ImageExists(context.Background(), "agentstack-api")
	if err != nil || exists {
		t.Errorf("expected api image absent without error, got %v %v", exists, err)
	}
}

func TestImageExists_SpawnFailureIsError(t *testing.T) {
	r := &fakeRunner{err: errors.New("exec: docker: not found")}
	if _, err := newClient(r).ImageExists(context.Background(), "agentstack-base"); err == nil {
		t.Fatal("expected error when the runtime binary cannot be spawned")
	}
}

func TestRunningCount(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
	}{
		{"four services", "aaa\nbbb\nccc\nddd\n", 4},
		{"none running", "", 0},
		{"blank lines ignored", "aaa\n\n  \nbbb\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{results: map[string]execx.Result{
				"docker compose -f compose.yaml -p agentstack ps -q": {ExitCode: 0, Output: tt.output},
			}}
			got, err := newClient(r).RunningCount(context.Background())
			if err != nil {
				t.Fatalf("running count failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d running, got %d", tt.want, got)
			}
		})
	}
}

func TestBuildImage_InvokesComposeBuild(t *testing.T) {
	r := &fakeRunner{}
	if _, err := newClient(r).BuildImage(context.Background(), "base"); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(r.calls) != 1 || r.calls[0] != "docker compose -f compose.yaml -p agentstack build base" {
		t.Errorf("unexpected invocation: %v", r.calls)
	}
}

func TestUpDown_InvokeCompose(t *testing.T) {
	r := &fakeRunner{}
	c := newClient(r)
	if _, err := c.Up(context.Background()); err != nil {
		t.Fatalf("up failed: %v", err)
	}
	if _, err := c.Down(context.Background()); err != nil {
		t.Fatalf("down failed: %v", err)
	}
	want := []string{
		"docker compose -f compose.yaml -p agentstack up -d",
		"docker compose -f compose.yaml -p agentstack down",
	}
	for i, w := range want {
		if r.calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, r.calls[i], w)
		}
	}
}
