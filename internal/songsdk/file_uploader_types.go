package songsdk

import "time"

const (
	DefaultChunkSize  = int64(1024 * 1024)
	DefaultMaxRetries = 5
)

// ProgressCallback reports the bytes the server has confirmed
type ProgressCallback func(uploaded int64, total int64)

type UploadParams struct {
	FilePath string
	Name     string           // file name sent to the server, defaults to the base name of FilePath
	Callback ProgressCallback // called after every accepted chunk
}

type UploaderConfig struct {
	ResumeDir  string        // where resume files are kept, defaults to a temp dir
	ChunkSize  int64         // bytes per chunk, must not exceed the server limit
	MaxRetries int           // attempts per chunk before giving up
	RetryWait  time.Duration // base backoff, doubled per attempt
}

type UploadResult struct {
	*CompleteResponse
	Resumed bool  // an earlier session was continued
	Sent    int64 // bytes the server confirmed during this call, retransmissions are not counted
}

// resumeState is persisted next to the upload so a later run continues the same session
type resumeState struct {
	SessionID   string `json:"sessionId"`
	FilePath    string `json:"filePath"`
	Fingerprint string `json:"fingerprint"`
	Size        int64  `json:"size"`
	ModTime     int64  `json:"modTime"` // unix nanos, the fingerprint is reused while size and mtime match
}
