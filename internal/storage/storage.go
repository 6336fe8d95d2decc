// Package storage archives run outputs (reports, personas, artifacts) in an
// S3-compatible object store.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Content types used for uploaded outputs.
const (
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeText     = "text/plain; charset=utf-8"
	ContentTypeJSON     = "application/json"
)

// Uploader stores text objects.
type Uploader interface {
	UploadText(ctx context.Context, key, content, contentType string) (string, error)
}

// Options configures a MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Logger    *zap.Logger
}

// MinioUploader writes objects to one bucket, creating it on first use.
type MinioUploader struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinioUploader connects to the object store and makes sure the bucket exists.
func NewMinioUploader(ctx context.Context, opts Options) (*MinioUploader, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	u := &MinioUploader{client: client, bucket: opts.Bucket, logger: logger}
	if err := u.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *MinioUploader) ensureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", u.bucket, err)
	}
	u.logger.Info("created bucket", zap.String("bucket", u.bucket))
	return nil
}

// UploadText stores content under key and returns the object location.
func (u *MinioUploader) UploadText(ctx context.Context, key, content, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentTypeText
	}
	_, err := u.client.PutObject(ctx, u.bucket, key,
		strings.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	location := u.bucket + "/" + key
	u.logger.Debug("uploaded object", zap.String("location", location), zap.Int("bytes", len(content)))
	return location, nil
}

// UploadJSON marshals v with indentation and stores it under key.
func UploadJSON(ctx context.Context, u Uploader, key string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return u.UploadText(ctx, key, string(bytes.TrimSpace(data)), ContentTypeJSON)
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// ObjectKey builds "<creator-slug>/<runID>/<name>". An empty creator maps to
// "unknown-creator".
func ObjectKey(creator, runID, name string) string {
	slug := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(creator), "-"), "-")
	if slug == "" {
		slug = "unknown-creator"
	}
	if runID == "" {
		runID = "adhoc"
	}
	return path.Join(slug, runID, name)
}
