package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agentstack/stackctl/pkg/execx"
)

type fakeRunner struct {
	results map[string]execx.Result
	err     error
}

func (f *fakeRunner) Run(_ context.Context, spec execx.Spec) (execx.Result, error) {
	if f.err != nil {
		return execx.Result{}, f.err
	}
	line := spec.Name + " " + strings.Join(spec.Args, " ")
	for prefix, res := range f.results {
		if strings.HasPrefix(line, prefix) {
			return res, nil
		}
	}
	return execx.Result{ExitCode: 1}, nil
}

func TestInstalled(t *testing.T) {
	present := &Client{Runner: &fakeRunner{results: map[string]execx.Result{
		"ollama --version": {ExitCode: 0, Output: "ollama version is 0.5.7\n"},
	}}, Bin: "ollama"}
	if !present.Installed(context.Background()) {
		t.Error("expected installed when version query exits zero")
	}

	missing := &Client{Runner: &fakeRunner{err: errors.New("exec: ollama: not found")}, Bin: "ollama"}
	if missing.Installed(context.Background()) {
		t.Error("expected not installed when binary is missing")
	}
}

func TestReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	if !c.Reachable(context.Background()) {
		t.Error("expected reachable against live daemon")
	}

	c.BaseURL = "http://127.0.0.1:1"
	if c.Reachable(context.Background()) {
		t.Error("expected unreachable against closed port")
	}
}

func TestHasModel(t *testing.T) {
	c := &Client{Runner: &fakeRunner{results: map[string]execx.Result{
		"ollama list": {ExitCode: 0, Output: "NAME          SIZE\nllama3.2:1b   1.3 GB\n"},
	}}, Bin: "ollama"}

	if !c.HasModel(context.Background(), "llama3.2:1b") {
		t.Error("expected pulled model to be reported present")
	}
	if c.HasModel(context.Background(), "llama3.1:70b") {
		t.Error("expected unpulled model to be reported absent")
	}
}

func TestPull_NonZeroExitIsData(t *testing.T) {
	c := &Client{Runner: &fakeRunner{results: map[string]execx.Result{
		"ollama pull llama3.1:8b": {ExitCode: 1, Output: "Error: pull model manifest: connection refused"},
	}}, Bin: "ollama"}

	res, err := c.Pull(context.Background(), "llama3.1:8b")
	if err != nil {
		t.Fatalf("pull failure must be data, not error: %v", err)
	}
	if res.ExitCode == 0 {
		t.Error("expected non-zero exit from failed pull")
	}
}
