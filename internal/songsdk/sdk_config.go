package songsdk

import (
	"time"

	"github.com/openmined/songbox/internal/utils"
)

const (
	DefaultBaseURL    = "http://127.0.0.1:8080"
	DefaultRetryCount = 3
	DefaultRetryWait  = 500 * time.Millisecond
)

// Config is the configuration for the SongSDK
type Config struct {
	BaseURL    string        // BaseURL is required
	RetryCount int           // retries for requests that fail on the network or with a 5xx
	RetryWait  time.Duration // base backoff between retries
	Timeout    time.Duration // per request timeout, 0 disables it
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}
	if !utils.IsValidURL(c.BaseURL) {
		return ErrInvalidServerURL
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.RetryWait <= 0 {
		c.RetryWait = DefaultRetryWait
	}
	return nil
}
