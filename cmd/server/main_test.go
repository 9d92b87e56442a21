package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openmined/songbox/internal/server"
	"github.com/openmined/songbox/internal/server/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newRootCmd())
	require.NoError(t, err)

	assert.Equal(t, server.DefaultAddr, cfg.HTTP.Addr)
	assert.Equal(t, server.DefaultRateLimit, cfg.HTTP.RateLimit)
	assert.Equal(t, server.DefaultReadTimeout, cfg.HTTP.ReadTimeout)
	assert.Equal(t, server.DefaultIdleTimeout, cfg.HTTP.IdleTimeout)
	assert.Equal(t, server.DefaultDataDir, cfg.DataDir)
	assert.Equal(t, upload.DefaultMaxChunkSize, cfg.Upload.MaxChunkSize)
	assert.Equal(t, upload.DefaultSessionTimeout, cfg.Upload.SessionTimeout)
	assert.Equal(t, upload.DefaultAllowedExtensions, cfg.Upload.AllowedExtensions)
	assert.False(t, cfg.Blob.UseS3())
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("SONGBOX_HTTP_ADDR", ":8080")
	t.Setenv("SONGBOX_HTTP_CERT_FILE", "test-cert.pem")
	t.Setenv("SONGBOX_HTTP_KEY_FILE", "test-key.pem")
	t.Setenv("SONGBOX_HTTP_RATE_LIMIT", "10-S")
	t.Setenv("SONGBOX_HTTP_READ_TIMEOUT", "90s")

	t.Setenv("SONGBOX_BLOB_BUCKET_NAME", "test-bucket")
	t.Setenv("SONGBOX_BLOB_REGION", "test-region")
	t.Setenv("SONGBOX_BLOB_ENDPOINT", "http://test-endpoint")
	t.Setenv("SONGBOX_BLOB_ACCESS_KEY", "test-access-key")
	t.Setenv("SONGBOX_BLOB_SECRET_KEY", "test-secret-key")

	t.Setenv("SONGBOX_UPLOAD_MAX_CHUNK_SIZE", "2097152")
	t.Setenv("SONGBOX_UPLOAD_SESSION_TIMEOUT", "15m")
	t.Setenv("SONGBOX_UPLOAD_ALLOWED_EXTENSIONS", ".mp3,.wav,.flac")
	t.Setenv("SONGBOX_DATA_DIR", "/tmp/songbox-test")

	cfg, err := loadConfig(newRootCmd())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "test-cert.pem", cfg.HTTP.CertFile)
	assert.Equal(t, "test-key.pem", cfg.HTTP.KeyFile)
	assert.Equal(t, "10-S", cfg.HTTP.RateLimit)
	assert.Equal(t, 90*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "test-bucket", cfg.Blob.BucketName)
	assert.Equal(t, "test-region", cfg.Blob.Region)
	assert.Equal(t, "http://test-endpoint", cfg.Blob.Endpoint)
	assert.Equal(t, "test-access-key", cfg.Blob.AccessKey)
	assert.Equal(t, "test-secret-key", cfg.Blob.SecretKey)
	assert.Equal(t, int64(2*1024*1024), cfg.Upload.MaxChunkSize)
	assert.Equal(t, 15*time.Minute, cfg.Upload.SessionTimeout)
	assert.Equal(t, []string{".mp3", ".wav", ".flac"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "/tmp/songbox-test", cfg.DataDir)
}

func TestLoadConfigYAML(t *testing.T) {
	dummyConfig := `
http:
  cert_file: test-cert.pem
  key_file: test-key.pem

blob:
  bucket_name: test-bucket
  region: test-region
  endpoint: http://test-endpoint
  access_key: test-access-key
  secret_key: test-secret-key

upload:
  max_chunk_size: 4194304
  retention: 48h
`
	dummyConfigFile := filepath.Join(t.TempDir(), "dummy.yaml")
	require.NoError(t, os.WriteFile(dummyConfigFile, []byte(dummyConfig), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("config", dummyConfigFile))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, server.DefaultAddr, cfg.HTTP.Addr)
	assert.Equal(t, "test-cert.pem", cfg.HTTP.CertFile)
	assert.Equal(t, "test-key.pem", cfg.HTTP.KeyFile)
	assert.Equal(t, "test-bucket", cfg.Blob.BucketName)
	assert.Equal(t, "test-region", cfg.Blob.Region)
	assert.Equal(t, "http://test-endpoint", cfg.Blob.Endpoint)
	assert.Equal(t, "test-access-key", cfg.Blob.AccessKey)
	assert.Equal(t, "test-secret-key", cfg.Blob.SecretKey)
	assert.Equal(t, int64(4*1024*1024), cfg.Upload.MaxChunkSize)
	assert.Equal(t, 48*time.Hour, cfg.Upload.Retention)
	assert.Equal(t, upload.DefaultSessionTimeout, cfg.Upload.SessionTimeout)
}

func TestLoadConfigJSON(t *testing.T) {
	dummyConfig := `
{
	"http": {
		"addr": "localhost:38080",
		"cert_file": "path/to/test-cert.pem",
		"key_file": "path/to/test-key.pem"
	},
	"blob": {
		"local_dir": "/srv/songs"
	},
	"data_dir": "/srv/songbox"
}
`
	dummyConfigFile := filepath.Join(t.TempDir(), "dummy.json")
	require.NoError(t, os.WriteFile(dummyConfigFile, []byte(dummyConfig), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("config", dummyConfigFile))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "localhost:38080", cfg.HTTP.Addr)
	assert.Equal(t, "path/to/test-cert.pem", cfg.HTTP.CertFile)
	assert.Equal(t, "path/to/test-key.pem", cfg.HTTP.KeyFile)
	assert.Equal(t, "", cfg.Blob.BucketName)
	assert.Equal(t, "/srv/songs", cfg.Blob.LocalDir)
	assert.Equal(t, "/srv/songbox", cfg.DataDir)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SONGBOX_HTTP_ADDR", ":9000")

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("bind", ":9001"))
	require.NoError(t, cmd.Flags().Set("data-dir", "/tmp/flag-data"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":9001", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/flag-data", cfg.DataDir)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := loadConfig(cmd)
	assert.Error(t, err)
}

func TestSetupLoggerWritesNumberedLines(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logDir := t.TempDir()
	closeLog, err := setupLogger(logDir)
	require.NoError(t, err)

	slog.Info("hello", "k", "v")
	closeLog()

	data, err := os.ReadFile(filepath.Join(logDir, logFileName))
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "line=1 "), line)
	assert.Contains(t, line, "msg=hello")
	assert.Contains(t, line, "k=v")
}
