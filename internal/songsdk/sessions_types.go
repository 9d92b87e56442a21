package songsdk

import "time"

type CreateSessionRequest struct {
	Fingerprint string `json:"fingerprint"`
	TotalSize   int64  `json:"totalSize"`
	Name        string `json:"name,omitempty"`
}

type Session struct {
	SessionID     string     `json:"sessionId"`
	Fingerprint   string     `json:"fingerprint"`
	Name          string     `json:"name,omitempty"`
	TotalSize     int64      `json:"totalSize"`
	ReceivedBytes int64      `json:"receivedBytes"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

type ChunkResponse struct {
	SessionID     string `json:"sessionId"`
	ReceivedBytes int64  `json:"receivedBytes"`
}

type CompleteResponse struct {
	SessionID   string `json:"sessionId"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
	ContentType string `json:"contentType"`
	ETag        string `json:"etag"`
}
