// Package publish uploads resolved outputs to an S3 sync target.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// S3API is the slice of the S3 client the uploader needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies local files into s3://Bucket/Prefix/<relative path>.
type Uploader struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
}

func NewUploader(client S3API, bucket, prefix string, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Key returns the object key for a file relative to root.
func (u *Uploader) Key(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	if u.prefix == "" {
		return rel, nil
	}
	return path.Join(u.prefix, rel), nil
}

// Sync uploads files, stopping at the first failure.
func (u *Uploader) Sync(ctx context.Context, root string, files []string) error {
	for _, file := range files {
		key, err := u.Key(root, file)
		if err != nil {
			return fmt.Errorf("upload %s: %w", file, err)
		}
		if err := u.Upload(ctx, file, key); err != nil {
			return err
		}
	}
	u.logger.Info("synced outputs",
		zap.String("bucket", u.bucket),
		zap.String("prefix", u.prefix),
		zap.Int("files", len(files)))
	return nil
}

// Upload puts a single file under key.
func (u *Uploader) Upload(ctx context.Context, file, key string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("upload %s: %w", file, err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(file)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", u.bucket, key, err)
	}
	u.logger.Debug("uploaded object", zap.String("bucket", u.bucket), zap.String("key", key))
	return nil
}

// ContentType guesses a MIME type from the file extension.
func ContentType(file string) string {
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	return defaultContentType
}
