// Package storage fetches and publishes the community workbook.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/secrets"
)

// Type names a storage backend.
type Type string

const (
	TypeS3    Type = "s3"
	TypeMinio Type = "minio"
	TypeFile  Type = "file"
	TypeHTTP  Type = "http"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrReadOnly = errors.New("storage is read only")
)

// Object identifies a stored workbook.
type Object struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"object"`
	VersionID string `json:"version_id,omitempty"`
}

// Storage keeps community workbooks.
type Storage interface {
	Store(ctx context.Context, r io.Reader, key string) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config selects and configures a backend.
type Config struct {
	Type Type `mapstructure:"type"`
	// Bucket is the bucket name for s3 and minio, the directory for file and
	// the base URL for http.
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	UseSSL   bool   `mapstructure:"use-ssl"`

	AccessKey     string `mapstructure:"access-key"`
	AccessKeyFile string `mapstructure:"access-key-file"`
	SecretKey     string `mapstructure:"secret-key"`
	SecretKeyFile string `mapstructure:"secret-key-file"`
}

func (c Config) credentials() (access, secret string, err error) {
	access, err = secrets.LoadOptional(secrets.Source{Name: "storage access key", Value: c.AccessKey, File: c.AccessKeyFile})
	if err != nil {
		return "", "", err
	}
	secret, err = secrets.LoadOptional(secrets.Source{Name: "storage secret key", Value: c.SecretKey, File: c.SecretKeyFile})
	if err != nil {
		return "", "", err
	}
	if (access == "") != (secret == "") {
		return "", "", fmt.Errorf("storage access key and secret key must be configured together")
	}
	return access, secret, nil
}

// New creates the backend selected by cfg.Type.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("storage", string(cfg.Type)), zap.String("bucket", cfg.Bucket))

	var (
		s   Storage
		err error
	)
	switch cfg.Type {
	case TypeS3:
		var b *S3Storage
		if b, err = NewS3(ctx, cfg, logger); err == nil {
			s = b
		}
	case TypeMinio:
		var b *MinioStorage
		if b, err = NewMinio(cfg, logger); err == nil {
			s = b
		}
	case TypeFile:
		var b *FileStorage
		if b, err = NewFile(cfg.Bucket, logger); err == nil {
			s = b
		}
	case TypeHTTP:
		var b *HTTPStorage
		if b, err = NewHTTP(cfg.Bucket, logger); err == nil {
			s = b
		}
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init %s storage: %w", cfg.Type, err)
	}
	return s, nil
}
