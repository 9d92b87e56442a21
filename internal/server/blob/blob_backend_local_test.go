package blob

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	data := []byte("ID3 some audio bytes")
	resp, err := backend.PutObject(ctx, &PutObjectParams{
		Key:  "uploads/abc.mp3",
		Size: int64(len(data)),
		Body: bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/abc.mp3", resp.Key)
	assert.Equal(t, int64(len(data)), resp.Size)
	assert.Len(t, resp.ETag, 32)

	obj, err := backend.GetObject(ctx, "uploads/abc.mp3")
	require.NoError(t, err)
	got, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, data, got)
	assert.Equal(t, int64(len(data)), obj.Size)

	deleted, err := backend.DeleteObject(ctx, "uploads/abc.mp3")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = backend.GetObject(ctx, "uploads/abc.mp3")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	deleted, err = backend.DeleteObject(ctx, "uploads/abc.mp3")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLocalBackend_PutShortBodyLeavesNoObject(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend, err := NewLocalBackend(root)
	require.NoError(t, err)

	_, err = backend.PutObject(ctx, &PutObjectParams{
		Key:  "uploads/short.wav",
		Size: 100,
		Body: bytes.NewReader([]byte("too short")),
	})
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(root, "uploads", "short.wav"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(filepath.Join(root, "uploads"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file should be cleaned up")
}

func TestLocalBackend_RejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "/abs/path", "dir/"} {
		_, err := backend.PutObject(ctx, &PutObjectParams{Key: key, Body: bytes.NewReader(nil)})
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalBackend_PutHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	_, err = backend.PutObject(ctx, &PutObjectParams{
		Key:  "uploads/cancelled.mp3",
		Size: 4,
		Body: bytes.NewReader([]byte("data")),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("local dir only", func(t *testing.T) {
		cfg := &Config{LocalDir: "/tmp/objects"}
		assert.NoError(t, cfg.Validate())
		assert.False(t, cfg.UseS3())
	})

	t.Run("missing local dir", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("s3 requires credentials", func(t *testing.T) {
		cfg := &Config{BucketName: "songs", Region: "us-east-1"}
		assert.Error(t, cfg.Validate())

		cfg.AccessKey = "key"
		cfg.SecretKey = "secret"
		assert.NoError(t, cfg.Validate())
		assert.True(t, cfg.UseS3())
	})

	t.Run("s3 invalid endpoint", func(t *testing.T) {
		cfg := &Config{BucketName: "songs", Region: "us-east-1", AccessKey: "k", SecretKey: "s", Endpoint: "not a url"}
		assert.Error(t, cfg.Validate())
	})
}
