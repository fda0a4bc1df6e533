package deploy

import (
	"os"
	"strings"

	"github.com/agentstack/stackctl/pkg/errors"
)

// artifactPresent reports whether the configuration artifact exists and is
// non-empty. Content validation is the consuming services' job.
func artifactPresent(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to stat %s", path)
	}
	return info.Size() > 0, nil
}

// readEnvValue returns the value for key in a flat KEY=VALUE file.
func readEnvValue(path, key string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, found := strings.Cut(line, "=")
		if found && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// writeEnvValue sets key=value in the file, replacing an existing assignment
// or appending a new one.
func writeEnvValue(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	lines := strings.Split(string(data), "\n")
	replaced := false
	for i, line := range lines {
		k, _, found := strings.Cut(strings.TrimSpace(line), "=")
		if found && strings.TrimSpace(k) == key {
			lines[i] = key + "=" + value
			replaced = true
			break
		}
	}
	out := strings.Join(lines, "\n")
	if !replaced {
		if !strings.HasSuffix(out, "\n") && out != "" {
			out += "\n"
		}
		out += key + "=" + value + "\n"
	}

	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
