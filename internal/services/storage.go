package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageConfig configures the object-storage uploader. Endpoint is a bare
// host, e.g. "atl1.digitaloceanspaces.com" or "s3.amazonaws.com".
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// StorageUploader uploads run artifacts to an S3-compatible bucket
// (DigitalOcean Spaces, AWS S3, MinIO).
type StorageUploader struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewStorageUploader creates an uploader for the configured bucket.
func NewStorageUploader(cfg StorageConfig, logger *slog.Logger) (*StorageUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage endpoint and bucket are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: true,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &StorageUploader{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Upload stores data under key in the configured bucket.
func (u *StorageUploader) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	u.logger.Debug("artifact uploaded",
		slog.String("bucket", u.bucket), slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// UploadFile stores a local file under key in the configured bucket.
func (u *StorageUploader) UploadFile(ctx context.Context, localPath, key string) error {
	_, err := u.client.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("upload file %s: %w", localPath, err)
	}
	return nil
}

var _ Uploader = (*StorageUploader)(nil)
