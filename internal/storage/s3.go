package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3Storage keeps workbooks in an S3 bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3 builds a client from the default AWS chain. Static keys from cfg
// take precedence and a custom endpoint switches to path-style addressing.
func NewS3(ctx context.Context, cfg Config, logger *zap.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}

	access, secret, err := cfg.credentials()
	if err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if access != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(access, secret, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("s3 storage configured",
		zap.String("region", awsCfg.Region),
		zap.String("endpoint", cfg.Endpoint),
	)

	return &S3Storage{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *S3Storage) Store(ctx context.Context, r io.Reader, key string) (Object, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		s.logger.Error("failed to store object", zap.String("key", key), zap.Error(err))
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}

	obj := Object{Bucket: s.bucket, Key: key, VersionID: aws.ToString(out.VersionId)}
	s.logger.Info("stored object", zap.String("key", key), zap.String("version_id", obj.VersionID))
	return obj, nil
}

func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.logger.Info("downloading object", zap.String("key", key))

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
		}
		s.logger.Error("failed to get object", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return out.Body, nil
}
