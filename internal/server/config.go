package server

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/openmined/songbox/internal/server/blob"
	"github.com/openmined/songbox/internal/server/upload"
	"github.com/openmined/songbox/internal/utils"
)

const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultRateLimit = "60-M"
	DefaultDataDir   = ".data"
	DefaultLogDir    = ".logs"
	dbFileName       = "state.db"

	// a chunk body must arrive within the read timeout, a stalled client is cut off after it
	DefaultReadTimeout = 5 * time.Minute
	DefaultIdleTimeout = 2 * time.Minute
)

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Blob    blob.Config   `mapstructure:"blob"`
	Upload  upload.Config `mapstructure:"upload"`
	DataDir string        `mapstructure:"data_dir"`
	LogDir  string        `mapstructure:"log_dir"`
}

type HTTPConfig struct {
	Addr      string `mapstructure:"addr"`
	CertFile  string `mapstructure:"cert_file"`
	KeyFile   string `mapstructure:"key_file"`
	RateLimit string `mapstructure:"rate_limit"` // session creations per client IP, e.g. "60-M"

	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

func (c *HTTPConfig) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// DBPath is the session index database under the data dir
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// Validate resolves paths, fills the directories derived from the data dir and
// checks every section.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http `addr` is required")
	}
	if (c.HTTP.CertFile == "") != (c.HTTP.KeyFile == "") {
		return fmt.Errorf("http `cert_file` and `key_file` must be set together")
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.IdleTimeout < 0 {
		return fmt.Errorf("http timeouts must not be negative")
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = DefaultReadTimeout
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = DefaultIdleTimeout
	}

	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	c.DataDir = dataDir

	if c.LogDir != "" {
		if c.LogDir, err = utils.ResolvePath(c.LogDir); err != nil {
			return fmt.Errorf("resolve log dir: %w", err)
		}
	}

	if c.Upload.StagingDir == "" {
		c.Upload.StagingDir = filepath.Join(c.DataDir, "staging")
	}
	if !c.Blob.UseS3() && c.Blob.LocalDir == "" {
		c.Blob.LocalDir = filepath.Join(c.DataDir, "objects")
	}

	if err := c.Blob.Validate(); err != nil {
		return err
	}
	return c.Upload.Validate()
}
