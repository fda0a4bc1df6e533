package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentstack/stackctl/pkg/prompt"
)

func TestFillTemplate(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, ".env.example")
	outPath := filepath.Join(dir, ".env")

	template := strings.Join([]string{
		"# agentstack configuration",
		"POSTGRES_USER=agentstack",
		"POSTGRES_PASSWORD=CHANGE_ME",
		"OPENAI_API_KEY=CHANGE_ME",
		"CHROMA_HOST=chromadb",
		"ADMIN_EMAIL=CHANGE_ME",
		"",
	}, "\n")
	if err := os.WriteFile(templatePath, []byte(template), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	src := &prompt.Scripted{
		Texts:   []string{"ops@example.com"},
		Secrets: []string{"s3cr3t", "sk-test"},
	}
	if err := fillTemplate(context.Background(), src, templatePath, outPath); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"POSTGRES_USER=agentstack",
		"POSTGRES_PASSWORD=s3cr3t",
		"OPENAI_API_KEY=sk-test",
		"CHROMA_HOST=chromadb",
		"ADMIN_EMAIL=ops@example.com",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "CHANGE_ME") {
		t.Error("placeholder survived fill-in")
	}
	if !strings.Contains(out, "# agentstack configuration") {
		t.Error("comment line must pass through untouched")
	}
}

func TestFillTemplateMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	err := fillTemplate(context.Background(), &prompt.Scripted{},
		filepath.Join(dir, "missing"), filepath.Join(dir, ".env"))
	if err == nil {
		t.Fatal("expected error for missing template")
	}
}

func TestIsSecretKey(t *testing.T) {
	cases := map[string]bool{
		"POSTGRES_PASSWORD": true,
		"OPENAI_API_KEY":    true,
		"JWT_SECRET":        true,
		"HF_TOKEN":          true,
		"ADMIN_EMAIL":       false,
		"CHROMA_HOST":       false,
	}
	for key, want := range cases {
		if got := isSecretKey(key); got != want {
			t.Errorf("isSecretKey(%q) = %t, want %t", key, got, want)
		}
	}
}
