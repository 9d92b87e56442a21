package api

import "fmt"

// APIError is the JSON body of every failed request.
// SessionID and ReceivedBytes are set when the client can use them to resume.
type APIError struct {
	Code          string `json:"code"`
	Message       string `json:"error"`
	SessionID     string `json:"sessionId,omitempty"`
	ReceivedBytes *int64 `json:"receivedBytes,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("songbox api error: code=%s, message=%s", e.Code, e.Message)
}
