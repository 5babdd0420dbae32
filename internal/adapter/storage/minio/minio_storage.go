package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Corey-Yule/caravan-site/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Uploaded listing images are served straight from the bucket, so objects get
// a browser cache hint and public-read style URLs.
const cacheControl = "max-age=3600"

type MinioStorage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewMinioStorage(cfg *config.MinIOConfig, logger *zap.Logger) (*MinioStorage, error) {
	log := logger.Named("MinioStorage")
	log.Info("Initializing MinIO storage",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("use_ssl", cfg.UseSSL))

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	ctx := context.Background()
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(ctx, cfg.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", cfg.Bucket, err, errBucketExists)
		}
		log.Info("Bucket already exists", zap.String("bucket", cfg.Bucket))
	}

	return &MinioStorage{
		client: client,
		bucket: cfg.Bucket,
		logger: log,
	}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	}

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("bucket", s.bucket), zap.String("key", objectKey), zap.Error(err))
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, objectKey)
	s.logger.Debug("Object uploaded",
		zap.String("key", info.Key),
		zap.Int64("size", info.Size),
		zap.String("url", url))
	return url, nil
}

// Remove deletes the given keys, continuing past individual failures.
func (s *MinioStorage) Remove(ctx context.Context, objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(objectKeys))
	for _, key := range objectKeys {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var removeErrs []error
	for res := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if res.Err != nil {
			s.logger.Warn("Failed to remove object", zap.String("key", res.ObjectName), zap.Error(res.Err))
			removeErrs = append(removeErrs, fmt.Errorf("remove %s: %w", res.ObjectName, res.Err))
		}
	}
	return errors.Join(removeErrs...)
}

// ObjectKeyFromURL maps a public URL issued by Upload back to its object key
// by locating the bucket path segment. Foreign URLs return false.
func (s *MinioStorage) ObjectKeyFromURL(url string) (string, bool) {
	segment := "/" + s.bucket + "/"
	idx := strings.Index(url, segment)
	if idx == -1 {
		return "", false
	}
	key := url[idx+len(segment):]
	if key == "" {
		return "", false
	}
	return key, true
}
