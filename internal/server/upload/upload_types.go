package upload

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

// IsTerminal reports whether a session in this status can no longer accept chunks
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusExpired
}

// Session is the server-side record of upload progress for one file
type Session struct {
	ID            string
	Fingerprint   string
	Name          string
	TotalSize     int64
	ReceivedBytes int64
	Status        Status
	ContentType   string
	ObjectKey     string
	ETag          string
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ===================================================================================================

type CreateSessionParams struct {
	Fingerprint string
	TotalSize   int64
	Name        string
}

type ChunkParams struct {
	SessionID string
	Offset    int64
	Checksum  string
}
