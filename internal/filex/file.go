// Package filex contains small filesystem helpers used by the upload gate.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) if absent and returns its absolute
// path. MkdirAll tolerates concurrent first callers racing on the same path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
