package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	DefaultMaxChunkSize   = int64(8 * 1024 * 1024)
	DefaultMaxUploadSize  = int64(4 * 1024 * 1024 * 1024)
	DefaultSessionTimeout = 1 * time.Hour
	DefaultRetention      = 24 * time.Hour
	DefaultReapInterval   = 1 * time.Minute
)

var (
	DefaultAllowedExtensions   = []string{".mp3", ".wav"}
	DefaultAllowedContentTypes = []string{"audio/mpeg", "audio/wav", "audio/x-wav", "audio/wave"}
)

type Config struct {
	StagingDir          string        `mapstructure:"staging_dir"`
	MaxChunkSize        int64         `mapstructure:"max_chunk_size"`
	MaxUploadSize       int64         `mapstructure:"max_upload_size"`
	SessionTimeout      time.Duration `mapstructure:"session_timeout"`
	Retention           time.Duration `mapstructure:"retention"`
	ReapInterval        time.Duration `mapstructure:"reap_interval"`
	AllowedExtensions   []string      `mapstructure:"allowed_extensions"`
	AllowedContentTypes []string      `mapstructure:"allowed_content_types"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxChunkSize:        DefaultMaxChunkSize,
		MaxUploadSize:       DefaultMaxUploadSize,
		SessionTimeout:      DefaultSessionTimeout,
		Retention:           DefaultRetention,
		ReapInterval:        DefaultReapInterval,
		AllowedExtensions:   DefaultAllowedExtensions,
		AllowedContentTypes: DefaultAllowedContentTypes,
	}
}

func (c *Config) Validate() error {
	if c.StagingDir == "" {
		return fmt.Errorf("upload `staging_dir` is required")
	}
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("upload `max_chunk_size` must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("upload `max_upload_size` must be positive")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("upload `session_timeout` must be positive")
	}
	if c.Retention < 0 {
		return fmt.Errorf("upload `retention` must not be negative")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("upload `reap_interval` must be positive")
	}
	for _, ext := range c.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("upload `allowed_extensions` entry %q must start with a dot", ext)
		}
	}
	return nil
}

// mediaPolicy decides which files a session may carry. An empty set disables its check.
type mediaPolicy struct {
	extensions   mapset.Set[string]
	contentTypes mapset.Set[string]
}

func newMediaPolicy(cfg *Config) *mediaPolicy {
	p := &mediaPolicy{
		extensions:   mapset.NewSet[string](),
		contentTypes: mapset.NewSet[string](),
	}
	for _, ext := range cfg.AllowedExtensions {
		p.extensions.Add(strings.ToLower(ext))
	}
	for _, ct := range cfg.AllowedContentTypes {
		p.contentTypes.Add(strings.ToLower(ct))
	}
	return p
}

func (p *mediaPolicy) AllowsName(name string) bool {
	if name == "" || p.extensions.Cardinality() == 0 {
		return true
	}
	return p.extensions.Contains(strings.ToLower(filepath.Ext(name)))
}

func (p *mediaPolicy) AllowsContentType(mt *mimetype.MIME) bool {
	if p.contentTypes.Cardinality() == 0 {
		return true
	}
	if mt == nil {
		return false
	}

	allowed := false
	p.contentTypes.Each(func(ct string) bool {
		for m := mt; m != nil; m = m.Parent() {
			if m.Is(ct) {
				allowed = true
				return true
			}
		}
		return false
	})
	return allowed
}
