// Package objstore publishes generated certificate bundles to an S3-compatible
// bucket (MinIO, AWS S3, ...).
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// Config holds the connection settings for the bucket
type Config struct {
	Endpoint  string `yaml:"endpoint"`  // host:port, without scheme
	AccessKey string `yaml:"accessKey"` // Access key id
	SecretKey string `yaml:"secretKey"` // Secret key
	Bucket    string `yaml:"bucket"`    // Created on first upload if missing
	Prefix    string `yaml:"prefix"`    // Key prefix, e.g. "certificates/"
	Secure    bool   `yaml:"secure"`    // Use HTTPS
}

// Enabled reports whether enough settings are present to upload.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Uploader stores archives in one bucket.
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
	log    logrus.FieldLogger
}

// New creates an Uploader. No request is made until the first upload.
func New(cfg Config, log logrus.FieldLogger) (*Uploader, error) {
	if !cfg.Enabled() {
		return nil, errors.New("object storage endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}, nil
}

// Upload stores a bundle under <prefix>/<runID>/<name> and returns the object key.
func (u *Uploader) Upload(ctx context.Context, runID, name string, r io.Reader, size int64) (string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := objectKey(u.prefix, runID, name)
	info, err := u.client.PutObject(ctx, u.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	u.log.WithFields(logrus.Fields{"bucket": u.bucket, "key": key, "size": info.Size}).Info("bundle uploaded")
	return key, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	found, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", u.bucket, err)
	}
	if found {
		return nil
	}
	u.log.Infof("bucket %q not found, creating it", u.bucket)
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", u.bucket, err)
	}
	return nil
}

// objectKey joins the key parts with '/', ignoring empty ones.
func objectKey(prefix, runID, name string) string {
	var parts []string
	for _, p := range []string{prefix, runID, path.Base(name)} {
		if p = strings.Trim(p, "/"); p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip":
		return "application/zip"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
