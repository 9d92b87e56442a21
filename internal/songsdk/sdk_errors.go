package songsdk

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL      = errors.New("sdk: server url missing")
	ErrInvalidServerURL = errors.New("sdk: invalid server url")
	ErrUploadInProgress = errors.New("sdk: file is being uploaded by another process")

	// api
	ErrInvalidRequest   = errors.New("sdk: invalid request")
	ErrRateLimited      = errors.New("sdk: rate limited")
	ErrSessionNotFound  = errors.New("sdk: session not found")
	ErrSessionConflict  = errors.New("sdk: session conflict")
	ErrSessionExpired   = errors.New("sdk: session expired")
	ErrOffsetMismatch   = errors.New("sdk: offset mismatch")
	ErrChecksumMismatch = errors.New("sdk: checksum mismatch")
	ErrUploadIncomplete = errors.New("sdk: upload incomplete")
	ErrUnsupportedMedia = errors.New("sdk: unsupported media")
	ErrStorageFailure   = errors.New("sdk: storage failure")
	ErrServer           = errors.New("sdk: server error")
)

const (
	CodeInvalidRequest   = "E_INVALID_REQUEST"
	CodeRateLimited      = "E_RATE_LIMITED"
	CodeInternalError    = "E_INTERNAL_ERROR"
	CodeSessionNotFound  = "E_SESSION_NOT_FOUND"
	CodeSessionConflict  = "E_SESSION_CONFLICT"
	CodeSessionExpired   = "E_SESSION_EXPIRED"
	CodeOffsetMismatch   = "E_OFFSET_MISMATCH"
	CodeChecksumMismatch = "E_CHECKSUM_MISMATCH"
	CodeUploadIncomplete = "E_UPLOAD_INCOMPLETE"
	CodeUnsupportedMedia = "E_UNSUPPORTED_MEDIA"
	CodeStorageFailure   = "E_STORAGE_FAILURE"
)

var codeErrors = map[string]error{
	CodeInvalidRequest:   ErrInvalidRequest,
	CodeRateLimited:      ErrRateLimited,
	CodeInternalError:    ErrServer,
	CodeSessionNotFound:  ErrSessionNotFound,
	CodeSessionConflict:  ErrSessionConflict,
	CodeSessionExpired:   ErrSessionExpired,
	CodeOffsetMismatch:   ErrOffsetMismatch,
	CodeChecksumMismatch: ErrChecksumMismatch,
	CodeUploadIncomplete: ErrUploadIncomplete,
	CodeUnsupportedMedia: ErrUnsupportedMedia,
	CodeStorageFailure:   ErrStorageFailure,
}

// APIError is an error response from the server.
// SessionID is set on conflicts, ReceivedBytes on offset mismatches.
type APIError struct {
	Code          string `json:"code"`
	Message       string `json:"error"`
	SessionID     string `json:"sessionId,omitempty"`
	ReceivedBytes *int64 `json:"receivedBytes,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// Is maps the error code onto the sdk sentinels, so callers can use errors.Is
func (e *APIError) Is(target error) bool {
	sentinel, ok := codeErrors[e.Code]
	return ok && sentinel == target
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok && err.Code != "" {
			return fmt.Errorf("%s: %w", operation, err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s: %w: %s", operation, ErrServer, resp.Status)
		}
		return fmt.Errorf("%s: unexpected response %s", operation, resp.Status)
	}

	return nil
}

// apiErrorOf unwraps the server error from err
func apiErrorOf(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
