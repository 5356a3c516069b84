// Package workdir provides the directories docvoice reads from and writes to.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxSuffix bounds the search for a free filename.
const maxSuffix = 1000

// DownloadsDir returns the default directory results are saved to:
//
//	$HOME/Downloads
//
// falling back to the current directory when no home directory is known.
func DownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// NewSession creates a private directory for the lifetime of one session.
// The caller removes it with os.RemoveAll when the session ends.
func NewSession() (string, error) {
	dir, err := os.MkdirTemp("", "docvoice-session-")
	if err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir, nil
}

// Prep ensures that dir exists.
func Prep(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// UniquePath returns a path for name inside dir that does not exist yet.
// Collisions get a numeric suffix: "summary.txt", "summary (1).txt", ...
func UniquePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, name)
	for i := 1; i <= maxSuffix; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}

	return "", fmt.Errorf("no free filename for %s in %s", name, dir)
}
