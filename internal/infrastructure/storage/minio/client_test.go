package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/helmkit/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

func (m *MockMinIOAPI) OpenObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

func newTestClient(api *MockMinIOAPI) *MinIOClient {
	return NewMinIOClientWithAPI(api, MinIOConfig{Bucket: "test-bucket"}, nil)
}

func objectChan(objs ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objs))
	for _, o := range objs {
		ch <- o
	}
	close(ch)
	return ch
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()
	cfg := MinIOConfig{}
	applyDefaults(&cfg)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "helmkit", cfg.Bucket)
	assert.Equal(t, "monomers/library.yaml", cfg.LibraryObject)
	assert.Equal(t, "reports/", cfg.ReportPrefix)
}

func TestEnsureBucket(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		t.Parallel()
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "test-bucket").Return(true, nil)
		require.NoError(t, newTestClient(api).EnsureBucket(ctx))
		api.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "test-bucket").Return(false, nil)
		api.On("MakeBucket", ctx, "test-bucket", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)
		require.NoError(t, newTestClient(api).EnsureBucket(ctx))
		api.AssertExpectations(t)
	})

	t.Run("check fails", func(t *testing.T) {
		t.Parallel()
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "test-bucket").Return(false, errors.New("dial tcp"))
		err := newTestClient(api).EnsureBucket(ctx)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
	})
}

func TestPut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := new(MockMinIOAPI)
	api.On("PutObject", ctx, "test-bucket", "a/b.json", mock.Anything, int64(2),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "application/json" })).
		Return(minio.UploadInfo{ETag: "etag-1", Size: 2}, nil)

	res, err := newTestClient(api).Put(ctx, "a/b.json", []byte("{}"), "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, "etag-1", res.ETag)
	assert.Equal(t, "test-bucket", res.Bucket)
	assert.EqualValues(t, 2, res.Size)

	_, err = newTestClient(api).Put(ctx, "", nil, "", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
}

func TestGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		api := new(MockMinIOAPI)
		api.On("StatObject", ctx, "test-bucket", "k", minio.StatObjectOptions{}).Return(minio.ObjectInfo{Key: "k"}, nil)
		api.On("OpenObject", ctx, "test-bucket", "k").Return(io.NopCloser(bytes.NewReader([]byte("payload"))), nil)
		data, err := newTestClient(api).Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		api := new(MockMinIOAPI)
		api.On("StatObject", ctx, "test-bucket", "k", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, noSuchKey)
		_, err := newTestClient(api).Get(ctx, "k")
		assert.True(t, pkgerrors.IsNotFound(err))
		api.AssertNotCalled(t, "OpenObject", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestExistsAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := new(MockMinIOAPI)
	api.On("StatObject", ctx, "test-bucket", "there", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, nil)
	api.On("StatObject", ctx, "test-bucket", "gone", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, noSuchKey)
	api.On("RemoveObject", ctx, "test-bucket", "there", minio.RemoveObjectOptions{}).Return(nil)
	c := newTestClient(api)

	ok, err := c.Exists(ctx, "there")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Exists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "there"))
}

func TestList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now()
	api := new(MockMinIOAPI)
	api.On("ListObjects", ctx, "test-bucket", minio.ListObjectsOptions{Prefix: "reports/", Recursive: true}).
		Return(objectChan(
			minio.ObjectInfo{Key: "reports/2026/01/02/a.json", Size: 10, LastModified: now},
			minio.ObjectInfo{Key: "reports/2026/01/02/b.json", Size: 20, LastModified: now},
		))

	objs, err := newTestClient(api).List(ctx, "reports/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.EqualValues(t, 20, objs[1].Size)

	failing := new(MockMinIOAPI)
	failing.On("ListObjects", ctx, "test-bucket", mock.Anything).Return(objectChan(minio.ObjectInfo{Err: errors.New("denied")}))
	_, err = newTestClient(failing).List(ctx, "reports/")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func TestHealthCheckAndClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := new(MockMinIOAPI)
	api.On("BucketExists", ctx, "test-bucket").Return(true, nil).Once()
	api.On("BucketExists", ctx, "test-bucket").Return(false, nil).Once()
	c := newTestClient(api)

	assert.NoError(t, c.HealthCheck(ctx))
	assert.True(t, pkgerrors.IsCode(c.HealthCheck(ctx), pkgerrors.ErrCodeServiceUnavailable))

	require.NoError(t, c.Close())
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMinIOClientClosed)
}
