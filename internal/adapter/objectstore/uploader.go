// Package objectstore uploads pipeline output to S3-compatible storage.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader copies output files into a bucket, once under a per-run key and
// once under a stable "latest" key.
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewUploader creates a client for the configured endpoint. No request is
// made until the first upload.
func NewUploader(cfg *config.Config, logger *slog.Logger) (*Uploader, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: %w", err)
	}
	return &Uploader{client: client, bucket: cfg.S3Bucket, prefix: cfg.S3Prefix, logger: logger}, nil
}

// Upload stores the file at localPath and returns the per-run object key.
func (u *Uploader) Upload(ctx context.Context, runID uuid.UUID, at time.Time, localPath string) (string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return "", err
	}

	name := filepath.Base(localPath)
	opts := minio.PutObjectOptions{ContentType: contentType(name)}

	runKey := RunKey(u.prefix, at, runID, name)
	for _, key := range []string{runKey, LatestKey(u.prefix, name)} {
		info, err := u.client.FPutObject(ctx, u.bucket, key, localPath, opts)
		if err != nil {
			return "", fmt.Errorf("objectstore: upload %s: %w", key, err)
		}
		u.logger.Debug("object uploaded", "bucket", u.bucket, "key", key, "size", info.Size)
	}
	u.logger.Info("output uploaded", "bucket", u.bucket, "key", runKey)
	return runKey, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("objectstore: bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("objectstore: create bucket %s: %w", u.bucket, err)
	}
	u.logger.Info("bucket created", "bucket", u.bucket)
	return nil
}

// RunKey is the object key of a run's output file:
// <prefix>/runs/<yyyy-mm-dd>/<run id>/<name>.
func RunKey(prefix string, at time.Time, runID uuid.UUID, name string) string {
	return joinKey(prefix, "runs", at.UTC().Format(time.DateOnly), runID.String(), name)
}

// LatestKey is the object key that always holds the newest output file.
func LatestKey(prefix, name string) string {
	return joinKey(prefix, "latest", name)
}

func joinKey(parts ...string) string {
	return strings.TrimPrefix(path.Join(parts...), "/")
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
