package bundle

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return path
}

func TestExtract(t *testing.T) {
	archive := writeArchive(t, map[string]string{
		"compose.yaml":     "services:\n  api: {}\n",
		"env/.env.example": "POSTGRES_PASSWORD=CHANGE_ME\n",
	})
	dest := t.TempDir()

	if err := Extract(archive, dest); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "compose.yaml"))
	if err != nil {
		t.Fatalf("compose file missing: %v", err)
	}
	if len(data) == 0 {
		t.Error("compose file extracted empty")
	}
	if _, err := os.Stat(filepath.Join(dest, "env", ".env.example")); err != nil {
		t.Errorf("nested entry missing: %v", err)
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	archive := writeArchive(t, map[string]string{
		"../outside.txt": "nope",
	})
	if err := Extract(archive, t.TempDir()); err == nil {
		t.Fatal("expected traversal entry to be rejected")
	}
}

func TestExtract_RejectsAbsolutePath(t *testing.T) {
	archive := writeArchive(t, map[string]string{
		"/etc/agentstack.conf": "nope",
	})
	if err := Extract(archive, t.TempDir()); err == nil {
		t.Fatal("expected absolute entry to be rejected")
	}
}

func TestExtract_RejectsSymlinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	f, _ := os.Create(path)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	tw.WriteHeader(&tar.Header{Name: "link", Linkname: "/etc/passwd", Typeflag: tar.TypeSymlink})
	tw.Close()
	gz.Close()
	f.Close()

	if err := Extract(path, t.TempDir()); err == nil {
		t.Fatal("expected symlink entry to be rejected")
	}
}
