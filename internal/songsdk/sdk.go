package songsdk

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"
	"github.com/openmined/songbox/internal/version"
)

// SongSDK is the main client for the SongBox upload API
type SongSDK struct {
	config   *Config
	client   *req.Client
	Sessions *SessionAPI
}

// New creates a new SongSDK client
func New(config *Config) (*SongSDK, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := req.C().
		SetBaseURL(config.BaseURL).
		SetCommonRetryCount(config.RetryCount).
		SetCommonRetryBackoffInterval(config.RetryWait, 8*config.RetryWait).
		SetCommonRetryCondition(shouldRetry).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderSongBoxVersion, version.Version).
		SetCommonHeader(HeaderSongBoxDeviceID, deviceID()).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}

	return &SongSDK{
		config:   config,
		client:   client,
		Sessions: newSessionAPI(client),
	}, nil
}

// ServerVersion returns the banner the server answers on its root route,
// e.g. `SongBox 0.1.0 (5e23a4; go1.23.6; linux/amd64; unknown)`
func (s *SongSDK) ServerVersion(ctx context.Context) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get("/")
	if err := handleAPIError(resp, err, "server version"); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.String()), nil
}

// Close releases idle connections
func (s *SongSDK) Close() {
	s.client.GetClient().CloseIdleConnections()
}

// shouldRetry retries transport failures and transient gateway errors.
// Upload errors are returned as is, the resumable uploader decides how to recover.
func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
