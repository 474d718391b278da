package blob

import (
	"context"
	"fmt"

	"zeepdrone/internal/config"
	"zeepdrone/internal/drone"
)

// NewStoreFromConfig creates a BlobStore implementation based on the blob config type.
func NewStoreFromConfig(ctx context.Context, cfg config.BlobConfig) (drone.BlobStore, error) {
	keys := Keys{
		LevelsPrefix:     cfg.LevelsPrefix,
		ThumbnailsPrefix: cfg.ThumbnailsPrefix,
	}

	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg.PublicBaseURL, keys), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			BaseURL:   cfg.PublicBaseURL,
			Keys:      keys,
		})
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot, cfg.PublicBaseURL, keys)
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
