package upload

import (
	"time"

	"github.com/openmined/songbox/internal/server/upload"
)

const HeaderChecksum = "X-Checksum"

type CreateSessionRequest struct {
	Fingerprint string `json:"fingerprint" binding:"required"`
	TotalSize   *int64 `json:"totalSize" binding:"required,min=0"`
	Name        string `json:"name"`
}

type SessionURI struct {
	SessionID string `uri:"id" binding:"required"`
}

type ChunkQuery struct {
	Offset *int64 `form:"offset" binding:"required,min=0"`
}

type SessionResponse struct {
	SessionID     string        `json:"sessionId"`
	Fingerprint   string        `json:"fingerprint"`
	Name          string        `json:"name,omitempty"`
	TotalSize     int64         `json:"totalSize"`
	ReceivedBytes int64         `json:"receivedBytes"`
	Status        upload.Status `json:"status"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
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
