package blob

import (
	"fmt"

	"github.com/openmined/songbox/internal/utils"
)

// Config selects the backend for finalized uploads. When BucketName is set the
// S3 backend is used, otherwise files are written under LocalDir.
type Config struct {
	BucketName    string `mapstructure:"bucket_name"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Endpoint      string `mapstructure:"endpoint"`
	UseAccelerate bool   `mapstructure:"use_accelerate"`
	LocalDir      string `mapstructure:"local_dir"`
}

func (c *Config) UseS3() bool {
	return c.BucketName != ""
}

func (c *Config) Validate() error {
	if !c.UseS3() {
		if c.LocalDir == "" {
			return fmt.Errorf("blob `local_dir` required when no bucket_name is set")
		}
		return nil
	}

	if c.Region == "" {
		return fmt.Errorf("blob `region` required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("blob `access_key` required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("blob `secret_key` required")
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return fmt.Errorf("invalid blob endpoint URL %q", c.Endpoint)
	}
	return nil
}
