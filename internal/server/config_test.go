package server

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/songbox/internal/server/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateDerivesDirs(t *testing.T) {
	dataDir := t.TempDir()
	cfg := &Config{
		HTTP:    HTTPConfig{Addr: DefaultAddr},
		Upload:  *upload.DefaultConfig(),
		DataDir: dataDir,
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(dataDir, "staging"), cfg.Upload.StagingDir)
	assert.Equal(t, filepath.Join(dataDir, "objects"), cfg.Blob.LocalDir)
	assert.Equal(t, filepath.Join(dataDir, "state.db"), cfg.DBPath())
	assert.False(t, cfg.HTTP.TLSEnabled())
	assert.Equal(t, DefaultReadTimeout, cfg.HTTP.ReadTimeout)
	assert.Equal(t, DefaultIdleTimeout, cfg.HTTP.IdleTimeout)
}

func TestConfig_ValidateErrors(t *testing.T) {
	base := func() *Config {
		return &Config{
			HTTP:    HTTPConfig{Addr: DefaultAddr},
			Upload:  *upload.DefaultConfig(),
			DataDir: t.TempDir(),
		}
	}

	t.Run("missing addr", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.Addr = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("cert without key", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.CertFile = "cert.pem"
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative read timeout", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.ReadTimeout = -time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("s3 without credentials", func(t *testing.T) {
		cfg := base()
		cfg.Blob.BucketName = "songs"
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero chunk size", func(t *testing.T) {
		cfg := base()
		cfg.Upload.MaxChunkSize = 0
		assert.Error(t, cfg.Validate())
	})
}
