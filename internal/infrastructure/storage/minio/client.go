// Package minio stores monomer libraries and archived analysis reports in an
// S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// MinIOAPI is the subset of the SDK client the package relies on.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	// OpenObject streams an object body.
	OpenObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
}

// sdkAPI adapts *minio.Client to MinIOAPI.
type sdkAPI struct {
	*minio.Client
}

func (a sdkAPI) OpenObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	return a.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
}

// MinIOConfig holds the connection and bucket settings.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	Bucket        string
	LibraryObject string
	ReportPrefix  string
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "helmkit"
	}
	if cfg.LibraryObject == "" {
		cfg.LibraryObject = "monomers/library.yaml"
	}
	if cfg.ReportPrefix == "" {
		cfg.ReportPrefix = "reports/"
	}
}

var (
	ErrObjectNotFound    = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrMinIOClientClosed = errors.New(errors.ErrCodeStorageError, "minio client is closed")
)

// UploadResult describes a stored object.
type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// ObjectMetadata describes a listed object.
type ObjectMetadata struct {
	ObjectKey    string
	Size         int64
	ETag         string
	LastModified time.Time
}

// MinIOClient wraps the SDK client bound to a single bucket.
type MinIOClient struct {
	api    MinIOAPI
	config MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewMinIOClient connects, verifies the endpoint and creates the bucket when
// it does not exist.
func NewMinIOClient(cfg MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	applyDefaults(&cfg)
	sdk, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := sdk.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := NewMinIOClientWithAPI(sdkAPI{sdk}, cfg, log)
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket))
	return c, nil
}

// NewMinIOClientWithAPI wraps an existing API implementation without
// network checks.
func NewMinIOClientWithAPI(api MinIOAPI, cfg MinIOConfig, log logging.Logger) *MinIOClient {
	applyDefaults(&cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MinIOClient{api: api, config: cfg, logger: log}
}

func (c *MinIOClient) Config() MinIOConfig { return c.config }

func (c *MinIOClient) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrMinIOClientClosed
	}
	return nil
}

func (c *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket "+c.config.Bucket)
	}
	c.logger.Info("created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// Put uploads data under key.
func (c *MinIOClient) Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (*UploadResult, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "object key is required")
	}
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(512, len(data))])
	}
	info, err := c.api.PutObject(ctx, c.config.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	c.logger.Debug("object uploaded", logging.String("key", key), logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     c.config.Bucket,
		ObjectKey:  key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Get downloads the object stored under key.
func (c *MinIOClient) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := c.api.StatObject(ctx, c.config.Bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, mapObjectError(err, key)
	}
	body, err := c.api.OpenObject(ctx, c.config.Bucket, key)
	if err != nil {
		return nil, mapObjectError(err, key)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, mapObjectError(err, key)
	}
	return data, nil
}

func (c *MinIOClient) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := c.api.StatObject(ctx, c.config.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed").WithDetail(key)
	}
	return true, nil
}

func (c *MinIOClient) Delete(ctx context.Context, key string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := c.api.RemoveObject(ctx, c.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete failed").WithDetail(key)
	}
	return nil
}

// List returns the objects under prefix, recursively.
func (c *MinIOClient) List(ctx context.Context, prefix string) ([]*ObjectMetadata, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	var out []*ObjectMetadata
	for obj := range c.api.ListObjects(ctx, c.config.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list failed").WithDetail(prefix)
		}
		out = append(out, &ObjectMetadata{
			ObjectKey:    obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// HealthCheck verifies the endpoint answers and the bucket exists.
func (c *MinIOClient) HealthCheck(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio health check failed")
	}
	if !exists {
		return errors.Newf(errors.ErrCodeServiceUnavailable, "bucket %s missing", c.config.Bucket)
	}
	return nil
}

func (c *MinIOClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func mapObjectError(err error, key string) error {
	if isNoSuchKey(err) {
		return ErrObjectNotFound.WithDetail(key)
	}
	return errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail(key)
}
