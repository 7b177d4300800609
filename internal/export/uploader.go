// Package export writes project reports to disk and, when S3-compatible
// storage is configured, uploads them and hands out pre-signed download
// URLs. With an empty bucket the NoopUploader keeps exports local-only.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sethvargo/go-retry"

	"github.com/hyperengineering/pindex/internal/config"
)

// ErrNotConfigured is returned when export storage is not configured.
var ErrNotConfigured = errors.New("export storage not configured")

// Uploader uploads report archives and generates pre-signed download URLs.
type Uploader interface {
	// Upload uploads the file at filePath under the given object key.
	Upload(ctx context.Context, key string, filePath string) error

	// PresignedURL returns a pre-signed URL for downloading the object.
	// Returns ErrNotConfigured when storage is not configured.
	PresignedURL(ctx context.Context, key string) (url string, expiry time.Time, err error)
}

// s3Client is the subset of minio.Client used by S3Uploader.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

// S3Uploader uploads report archives to S3-compatible storage. Failed
// uploads are retried with exponential backoff.
type S3Uploader struct {
	client     s3Client
	bucket     string
	urlExpiry  time.Duration
	maxRetries uint64
	retryBase  time.Duration
}

// Upload uploads the file at filePath under key.
func (u *S3Uploader) Upload(ctx context.Context, key string, filePath string) error {
	b := retry.WithMaxRetries(u.maxRetries, retry.NewExponential(u.retryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := u.client.FPutObject(ctx, u.bucket, key, filePath, "application/json"); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload report to S3: %w", err)
	}
	return nil
}

// PresignedURL returns a pre-signed GET URL for key.
func (u *S3Uploader) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, key, u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	return presigned.String(), time.Now().Add(u.urlExpiry), nil
}

// NoopUploader is used when export storage is not configured.
// Upload is a no-op and PresignedURL returns ErrNotConfigured.
type NoopUploader struct{}

// Upload is a no-op when storage is not configured.
func (u *NoopUploader) Upload(ctx context.Context, key string, filePath string) error {
	return nil
}

// PresignedURL returns ErrNotConfigured.
func (u *NoopUploader) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader returns NoopUploader when the bucket is empty and an
// S3Uploader otherwise.
func NewUploader(cfg config.ExportConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &S3Uploader{
		client:     &minioClientWrapper{client: client},
		bucket:     cfg.Bucket,
		urlExpiry:  time.Duration(cfg.URLExpiry),
		maxRetries: uint64(maxRetries),
		retryBase:  500 * time.Millisecond,
	}, nil
}

// ObjectKey returns the object key of a report archive.
// Convention: {project_id}/reports/{file_name}
func ObjectKey(projectID, fileName string) string {
	return projectID + "/reports/" + fileName
}
