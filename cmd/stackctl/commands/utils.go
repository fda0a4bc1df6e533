package commands

import (
	"os"
	"path/filepath"

	"github.com/agentstack/stackctl/pkg/errors"
)

// ensureParentDirs creates the parent directory of every given file path.
func ensureParentDirs(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", path)
		}
	}
	return nil
}
