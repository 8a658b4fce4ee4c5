package storage

import (
	"context"
	"fmt"

	"campusflow/internal/config"
)

type Factory struct {
	config config.StorageConfig
}

func NewFactory(cfg config.StorageConfig) *Factory {
	return &Factory{
		config: cfg,
	}
}

func (f *Factory) CreateStorage(ctx context.Context) (Storage, error) {
	switch StorageType(f.config.Type) {
	case StorageTypeLocal, "":
		basePath := f.config.LocalPath
		if basePath == "" {
			basePath = "./uploads"
		}
		return NewLocalStorage(basePath, f.config.PublicBaseURL)

	case StorageTypeS3:
		if f.config.S3Bucket == "" || f.config.S3Region == "" {
			return nil, fmt.Errorf("S3 storage requires STORAGE_S3_BUCKET and STORAGE_S3_REGION")
		}
		return NewS3Storage(ctx, S3Config{
			Bucket:        f.config.S3Bucket,
			Region:        f.config.S3Region,
			Endpoint:      f.config.S3Endpoint,
			PublicBaseURL: f.config.PublicBaseURL,
		})

	default:
		return nil, fmt.Errorf("unknown storage type: %s", f.config.Type)
	}
}
