package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioStorage keeps workbooks in a MinIO bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewMinio(cfg Config, logger *zap.Logger) (*MinioStorage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}

	access, secret, err := cfg.credentials()
	if err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioStorage{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Store uploads the workbook, creating the bucket on first use.
func (m *MinioStorage) Store(ctx context.Context, r io.Reader, key string) (Object, error) {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return Object{}, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return Object{}, fmt.Errorf("failed to create bucket: %w", err)
		}
		m.logger.Info("created bucket")
	}

	info, err := m.client.PutObject(ctx, m.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	})
	if err != nil {
		m.logger.Error("failed to store object", zap.String("key", key), zap.Error(err))
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}

	m.logger.Info("stored object", zap.String("key", key), zap.String("version_id", info.VersionID))
	return Object{Bucket: m.bucket, Key: key, VersionID: info.VersionID}, nil
}

// Get stats the object first since GetObject only fails on the first read.
func (m *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, m.bucket, key)
		}
		m.logger.Error("failed to get object", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return obj, nil
}
