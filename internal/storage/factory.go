package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alkime/docvoice/internal/config"
	"google.golang.org/api/option"
)

// FromConfig builds the store selected by cfg.StorageMode.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.StorageMode {
	case config.StorageStream:
		return NewStream(), nil

	case config.StorageTempFile:
		return NewTempFile(cfg.TmpDir, cfg.TTL(), logger)

	case config.StorageGCS:
		var opts []option.ClientOption
		if cfg.GCPCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
		}
		return NewGCS(ctx, cfg.GCSBucket, cfg.TTL(), logger, opts...)

	default:
		return nil, fmt.Errorf("unknown STORAGE_MODE: %s", cfg.StorageMode)
	}
}
