package songsdk

import (
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/openmined/songbox/internal/version"
)

const (
	HeaderUserAgent       = "User-Agent"
	HeaderSongBoxVersion  = "X-SongBox-Version"
	HeaderSongBoxDeviceID = "X-Device-Id"
	HeaderChecksum        = "X-Checksum"
)

const (
	routeSessions        = "/api/v1/sessions"
	routeSession         = "/api/v1/sessions/{id}"
	routeSessionChunk    = "/api/v1/sessions/{id}/chunk"
	routeSessionComplete = "/api/v1/sessions/{id}/complete"
)

// deviceID identifies this machine without exposing the raw machine id
var deviceID = sync.OnceValue(func() string {
	id, err := machineid.ProtectedID(version.AppName)
	if err != nil {
		return "unknown"
	}
	return id
})

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

// IsLive reports whether the session still accepts chunks
func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusInProgress
}
