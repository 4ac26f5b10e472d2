package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteOutput stores text at path through a temp file in the same
// directory and a rename, so readers never see a partial program.
func WriteOutput(path, text string, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".fee-*")
	if err != nil {
		return fmt.Errorf("failed to create temp output: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp) //nolint:errcheck
		}
	}()
	if _, err = f.WriteString(text); err != nil {
		_ = f.Close() //nolint:errcheck
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err = os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("failed to set mode on %q: %w", path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
