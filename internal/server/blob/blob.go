package blob

import (
	"context"
	"log/slog"

	"github.com/openmined/songbox/internal/utils"
)

// NewBackend builds the backend selected by the config
func NewBackend(ctx context.Context, cfg *Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.UseS3() {
		slog.Info("blob backend", "type", "s3", "bucket", cfg.BucketName, "region", cfg.Region, "endpoint", cfg.Endpoint, "accessKey", utils.MaskSecret(cfg.AccessKey))
		return NewS3BackendWithConfig(ctx, cfg)
	}

	slog.Info("blob backend", "type", "local", "dir", cfg.LocalDir)
	return NewLocalBackend(cfg.LocalDir)
}
