package minio

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

// Internal adapter interface to enable mocking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ model.Uploader = (*Client)(nil)

const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9.]`)

// Client stores user media in a MinIO bucket readable by everyone.
type Client struct {
	api     minioAPI
	bucket  string
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a new MinIO storage client using a real *minio.Client instance.
func NewClient(ctx context.Context, client *minio.Client, bucket, publicBaseURL string, logger *logger.Logger) (*Client, error) {
	return NewClientWithAPI(ctx, client, bucket, publicBaseURL, logger)
}

// NewClientWithAPI allows injecting a mockable API (used in tests).
func NewClientWithAPI(ctx context.Context, api minioAPI, bucket, publicBaseURL string, logger *logger.Logger) (*Client, error) {
	c := &Client{
		api:     api,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
	}

	if err := c.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

// ensureBucketExists creates the bucket with a public read policy if it doesn't exist
func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	if err := c.api.SetBucketPolicy(ctx, c.bucket, fmt.Sprintf(publicReadPolicy, c.bucket)); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}

	c.logger.Info("Storage: bucket created",
		"bucket", c.bucket)
	return nil
}

// Upload stores reader under <folder>/<uuid>-<name> and returns the public URL.
// onProgress receives whole percentages as they change; size must be known
// for progress to be reported.
func (c *Client) Upload(ctx context.Context, folder, filename string, reader io.Reader, size int64, onProgress model.ProgressFunc) (string, error) {
	objectName := ObjectName(folder, filename)

	opts := minio.PutObjectOptions{}
	var progress *progressReader
	if onProgress != nil && size > 0 {
		progress = &progressReader{total: size, fn: onProgress, last: -1}
		opts.Progress = progress
	}

	info, err := c.api.PutObject(ctx, c.bucket, objectName, reader, size, opts)
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		c.logger.Error("Storage: upload failed",
			"object", objectName,
			"code", code,
			"error", err.Error())
		return "", &model.UploadError{Code: code, Err: fmt.Errorf("failed to upload object: %w", err)}
	}

	if onProgress != nil && (progress == nil || progress.last != 100) {
		onProgress(100)
	}

	c.logger.Debug("Storage: object uploaded",
		"object", objectName,
		"size", info.Size)

	return c.URL(objectName), nil
}

// URL is the public address of an object.
func (c *Client) URL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.bucket, objectName)
}

// ObjectName builds a collision-free object name for an uploaded file.
func ObjectName(folder, filename string) string {
	name := unsafeName.ReplaceAllString(filename, "_")
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s-%s", strings.Trim(folder, "/"), uuid.NewString(), name)
}

// progressReader receives the byte counts minio reports while uploading.
type progressReader struct {
	total int64
	sent  int64
	last  int
	fn    model.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.sent += int64(len(b))
	percent := int(p.sent * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	if percent != p.last {
		p.last = percent
		p.fn(percent)
	}
	return len(b), nil
}
