package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeNotFound       = "E_NOT_FOUND"       // no such route
	CodeNotAllowed     = "E_METHOD_NOT_ALLOWED"

	// Upload session errors
	CodeSessionNotFound  = "E_SESSION_NOT_FOUND" // unknown session id, or its record was purged
	CodeSessionConflict  = "E_SESSION_CONFLICT"  // a live session exists for the fingerprint, or the session is finished
	CodeSessionExpired   = "E_SESSION_EXPIRED"   // the session timed out
	CodeOffsetMismatch   = "E_OFFSET_MISMATCH"   // chunk offset differs from receivedBytes
	CodeChecksumMismatch = "E_CHECKSUM_MISMATCH" // chunk or assembled file does not match its checksum
	CodeUploadIncomplete = "E_UPLOAD_INCOMPLETE" // complete called before all bytes arrived
	CodeUnsupportedMedia = "E_UNSUPPORTED_MEDIA" // file name or content type not accepted
	CodeStorageFailure   = "E_STORAGE_FAILURE"   // staging or blob storage failed, the session is aborted
)
