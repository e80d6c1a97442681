package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"experts-geo/core/storage"
	"experts-geo/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "geo").Return(true, nil)

		assert.NoError(t, storage.EnsureBucket(ctx, client, "geo"))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creates missing bucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "geo").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "geo", mock.Anything).Return(nil)

		assert.NoError(t, storage.EnsureBucket(ctx, client, "geo"))
		client.AssertExpectations(t)
	})

	t.Run("Check fails", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "geo").Return(false, errors.New("denied"))

		assert.Error(t, storage.EnsureBucket(ctx, client, "geo"))
	})
}

func TestPutAndGetArtifact(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	payload := []byte(`{"type":"FeatureCollection","features":[]}`)

	client.On("PutObject", mock.Anything, "geo", "geojson/works.geojson", mock.Anything, int64(len(payload)),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "application/geo+json" })).
		Return(minio.UploadInfo{}, nil)
	client.On("GetObject", mock.Anything, "geo", "geojson/works.geojson", mock.Anything).
		Return(io.NopCloser(bytes.NewReader(payload)), nil)

	require.NoError(t, storage.PutArtifact(ctx, client, "geo", "geojson/works.geojson", "application/geo+json", payload))

	got, err := storage.GetArtifact(ctx, client, "geo", "geojson/works.geojson")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestListArtifacts(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "geo", mock.Anything).
		Return(func(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
			ch := make(chan minio.ObjectInfo, 3)
			ch <- minio.ObjectInfo{Key: "geojson/works.geojson"}
			ch <- minio.ObjectInfo{Key: "geojson/grants.geojson"}
			ch <- minio.ObjectInfo{Key: "geojson/readme.txt"}
			close(ch)
			return ch
		})

	names, err := storage.ListArtifacts(context.Background(), client, "geo", "geojson/", ".geojson")
	require.NoError(t, err)
	assert.Equal(t, []string{"geojson/works.geojson", "geojson/grants.geojson"}, names)
}
