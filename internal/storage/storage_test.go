package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/files/")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "images/00001-123456.webp", []byte("v1"), "image/webp"))
	require.NoError(t, store.Put(ctx, "images/00001-123456.webp", []byte("v2"), "image/webp"))

	data, err := store.Get(ctx, "images/00001-123456.webp")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data, "put overwrites on collision")

	_, err = os.Stat(filepath.Join(store.Root(), "images", "00001-123456.webp.part"))
	assert.True(t, os.IsNotExist(err), "no temp file left behind")

	assert.Equal(t, "http://localhost:8080/files/images/00001-123456.webp", store.PublicURL("images/00001-123456.webp"))
	assert.Equal(t, "", store.PublicURL(""))

	require.NoError(t, store.Delete(ctx, "images/00001-123456.webp", "thumbnails/missing.webp", ""))
	_, err = store.Get(ctx, "images/00001-123456.webp")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "http://x")
	require.NoError(t, err)

	// Cleaning anchors keys at the root, so ".." cannot climb out.
	require.NoError(t, store.Put(ctx, "../../etc/evil", []byte("x"), "text/plain"))
	_, err = os.Stat(filepath.Join(store.Root(), "etc", "evil"))
	assert.NoError(t, err)

	assert.Error(t, store.Put(ctx, "/", []byte("x"), "text/plain"))
}

func TestS3StorePublicURL(t *testing.T) {
	s, err := NewS3Store(context.Background(), S3Options{
		Endpoint:     "https://s3.example.com",
		Region:       "us-east-1",
		AccessKeyID:  "key",
		Bucket:       "media",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com/media/images/a%20b.webp", s.PublicURL("images/a b.webp"))

	s.opts.PublicURL = "https://cdn.example.com/"
	assert.Equal(t, "https://cdn.example.com/images/x.webp", s.PublicURL("images/x.webp"))

	_, err = NewS3Store(context.Background(), S3Options{Region: "us-east-1"})
	assert.Error(t, err)
}
