package bundle

import (
	"archive/tar"
	"compress/gzip"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstack/stackctl/pkg/errors"
)

// maxEntrySize caps one bundle member; release bundles hold text files and
// small Dockerfile contexts, nothing near this.
const maxEntrySize = 64 * 1024 * 1024

// isNotFound matches the S3 HeadObject not-found error shape.
func isNotFound(err error) bool {
	var nf interface{ ErrorCode() string }
	if stderrors.As(err, &nf) {
		code := nf.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

// Extract unpacks a gzipped bundle tarball into destDir, rejecting absolute
// paths, traversal and oversized entries.
func Extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open bundle archive")
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "failed to read bundle gzip stream")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "bundle tar read error")
		}

		if err := validateEntryPath(header.Name); err != nil {
			return err
		}
		target := filepath.Join(destDir, header.Name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "failed to create %s", header.Name)
			}
		case tar.TypeReg:
			if header.Size > maxEntrySize {
				return fmt.Errorf("bundle entry %s exceeds size limit (%d bytes)", header.Name, header.Size)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "failed to create parent of %s", header.Name)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", header.Name)
			}
			if _, err := io.CopyN(out, tr, header.Size); err != nil && err != io.EOF {
				out.Close()
				return errors.Wrapf(err, "failed to write %s", header.Name)
			}
			out.Close()
		default:
			// Symlinks and specials have no business in a config bundle.
			return fmt.Errorf("bundle entry %s has unsupported type %d", header.Name, header.Typeflag)
		}
	}
	return nil
}

func validateEntryPath(name string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("bundle entry with absolute path: %s", name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("bundle entry escapes destination: %s", name)
	}
	return nil
}
