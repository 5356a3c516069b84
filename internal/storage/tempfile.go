package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TempFile writes audio to a directory and deletes each file after a TTL.
type TempFile struct {
	dir    string
	logger *slog.Logger
	reaper *reaper
}

// NewTempFile stores files under dir, creating it if needed. An empty dir
// uses a docvoice folder in the system temp directory.
func NewTempFile(dir string, ttl time.Duration, logger *slog.Logger) (*TempFile, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "docvoice")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create audio dir %s: %w", dir, err)
	}

	return &TempFile{dir: dir, logger: logger, reaper: newReaper(ttl)}, nil
}

// Save implements Store.
func (t *TempFile) Save(_ context.Context, data []byte) (*Stored, error) {
	path := filepath.Join(t.dir, objectName())

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}
	t.reaper.schedule(path, func() { t.remove(path) })

	//nolint:gosec // path is generated above
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen audio: %w", err)
	}

	t.logger.Debug("Audio saved", "path", path, "bytes", len(data))

	return &Stored{Reader: f, Size: int64(len(data)), Location: path}, nil
}

// Close deletes every file that is still waiting for its TTL.
func (t *TempFile) Close() error {
	for _, path := range t.reaper.flush() {
		t.remove(path)
	}
	return nil
}

func (t *TempFile) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		t.logger.Warn("Failed to delete expired audio", "path", path, "error", err)
		return
	}
	t.logger.Debug("Expired audio deleted", "path", path)
}
