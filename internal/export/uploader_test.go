package export

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/hyperengineering/pindex/internal/config"
)

type mockS3Client struct {
	putCalls   int
	failPuts   int
	putErr     error
	lastBucket string
	lastKey    string
	lastPath   string
	lastType   string
	presignErr error
	lastExpiry time.Duration
}

func (m *mockS3Client) FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error {
	m.putCalls++
	m.lastBucket = bucket
	m.lastKey = objectName
	m.lastPath = filePath
	m.lastType = contentType
	if m.putCalls <= m.failPuts {
		return m.putErr
	}
	return nil
}

func (m *mockS3Client) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	if m.presignErr != nil {
		return nil, m.presignErr
	}
	m.lastExpiry = expiry
	return url.Parse("https://s3.example.com/" + bucket + "/" + objectName + "?X-Amz-Signature=abc")
}

func newTestUploader(client *mockS3Client, maxRetries uint64) *S3Uploader {
	return &S3Uploader{
		client:     client,
		bucket:     "reports",
		urlExpiry:  15 * time.Minute,
		maxRetries: maxRetries,
		retryBase:  time.Millisecond,
	}
}

// --- NoopUploader Tests ---

func TestNoopUploader(t *testing.T) {
	u := &NoopUploader{}
	if err := u.Upload(context.Background(), "k", "/some/path"); err != nil {
		t.Errorf("NoopUploader.Upload() should not error, got %v", err)
	}
	if _, _, err := u.PresignedURL(context.Background(), "k"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NoopUploader.PresignedURL() should return ErrNotConfigured, got %v", err)
	}
}

// --- NewUploader factory tests ---

func TestNewUploader_EmptyBucket_ReturnsNoopUploader(t *testing.T) {
	u, err := NewUploader(config.ExportConfig{})
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}
	if _, ok := u.(*NoopUploader); !ok {
		t.Errorf("expected *NoopUploader, got %T", u)
	}
}

func TestNewUploader_WithBucket_ReturnsS3Uploader(t *testing.T) {
	u, err := NewUploader(config.ExportConfig{
		Bucket:     "reports",
		Endpoint:   "localhost:9000",
		Region:     "us-east-1",
		UseSSL:     false,
		AccessKey:  "minioadmin",
		SecretKey:  "minioadmin",
		URLExpiry:  config.Duration(15 * time.Minute),
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}
	s3, ok := u.(*S3Uploader)
	if !ok {
		t.Fatalf("expected *S3Uploader, got %T", u)
	}
	if s3.bucket != "reports" || s3.urlExpiry != 15*time.Minute || s3.maxRetries != 2 {
		t.Errorf("S3Uploader = %+v", s3)
	}
}

// --- S3Uploader Tests ---

func TestS3Uploader_Upload(t *testing.T) {
	client := &mockS3Client{}
	u := newTestUploader(client, 0)

	if err := u.Upload(context.Background(), "p1/reports/r.json", "/tmp/r.json"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if client.lastBucket != "reports" || client.lastKey != "p1/reports/r.json" || client.lastPath != "/tmp/r.json" {
		t.Errorf("FPutObject called with bucket=%q key=%q path=%q", client.lastBucket, client.lastKey, client.lastPath)
	}
	if client.lastType != "application/json" {
		t.Errorf("content type = %q, want application/json", client.lastType)
	}
}

func TestS3Uploader_Upload_RetriesTransientFailures(t *testing.T) {
	client := &mockS3Client{failPuts: 2, putErr: errors.New("connection reset")}
	u := newTestUploader(client, 3)

	if err := u.Upload(context.Background(), "k", "/tmp/r.json"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if client.putCalls != 3 {
		t.Errorf("putCalls = %d, want 3", client.putCalls)
	}
}

func TestS3Uploader_Upload_GivesUp(t *testing.T) {
	putErr := errors.New("access denied")
	client := &mockS3Client{failPuts: 10, putErr: putErr}
	u := newTestUploader(client, 2)

	err := u.Upload(context.Background(), "k", "/tmp/r.json")
	if !errors.Is(err, putErr) {
		t.Fatalf("Upload() error = %v, want wrapped %v", err, putErr)
	}
	if client.putCalls != 3 {
		t.Errorf("putCalls = %d, want 1 attempt + 2 retries", client.putCalls)
	}
}

func TestS3Uploader_PresignedURL(t *testing.T) {
	client := &mockS3Client{}
	u := newTestUploader(client, 0)

	before := time.Now()
	got, expiry, err := u.PresignedURL(context.Background(), "p1/reports/r.json")
	if err != nil {
		t.Fatalf("PresignedURL() error = %v", err)
	}
	if got != "https://s3.example.com/reports/p1/reports/r.json?X-Amz-Signature=abc" {
		t.Errorf("url = %q", got)
	}
	if client.lastExpiry != 15*time.Minute {
		t.Errorf("expiry passed = %v, want 15m", client.lastExpiry)
	}
	if expiry.Before(before.Add(15 * time.Minute)) {
		t.Errorf("expiry %v is earlier than now+15m", expiry)
	}

	client.presignErr = errors.New("bad credentials")
	if _, _, err := u.PresignedURL(context.Background(), "k"); err == nil {
		t.Error("PresignedURL() should fail when presigning fails")
	}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("01ARZ3NDEKTSV4RRFFQ69G5FAV", "report.json"); got != "01ARZ3NDEKTSV4RRFFQ69G5FAV/reports/report.json" {
		t.Errorf("ObjectKey() = %q", got)
	}
}
