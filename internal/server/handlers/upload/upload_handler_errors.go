package upload

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/songbox/internal/server/handlers/api"
	"github.com/openmined/songbox/internal/server/upload"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{upload.ErrInvalidRequest, http.StatusBadRequest, api.CodeInvalidRequest},
	{upload.ErrNotFound, http.StatusNotFound, api.CodeSessionNotFound},
	{upload.ErrConflict, http.StatusConflict, api.CodeSessionConflict},
	{upload.ErrOffsetMismatch, http.StatusConflict, api.CodeOffsetMismatch},
	{upload.ErrIncomplete, http.StatusConflict, api.CodeUploadIncomplete},
	{upload.ErrChecksumMismatch, http.StatusUnprocessableEntity, api.CodeChecksumMismatch},
	{upload.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, api.CodeUnsupportedMedia},
	{upload.ErrExpired, http.StatusGone, api.CodeSessionExpired},
	{upload.ErrStorageFailure, http.StatusInternalServerError, api.CodeStorageFailure},
}

// internal failures carry server paths, clients only see this
const internalErrorMessage = "the server could not store the upload, retry later"

// abortWithUploadError responds with the status and code of err. Conflicts and
// offset mismatches carry what the client needs to resume. Server side causes are
// logged and recorded on the context but not sent.
func abortWithUploadError(ctx *gin.Context, sessionID string, err error) {
	status, code := http.StatusInternalServerError, api.CodeInternalError
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			status, code = e.status, e.code
			break
		}
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("upload request failed", "sessionId", sessionID, "code", code, "error", err)
		message = internalErrorMessage
	}

	body := &api.APIError{
		Code:      code,
		Message:   message,
		SessionID: sessionID,
	}

	var conflict *upload.ConflictError
	if errors.As(err, &conflict) {
		body.SessionID = conflict.SessionID
	}
	var mismatch *upload.OffsetMismatchError
	if errors.As(err, &mismatch) {
		body.ReceivedBytes = &mismatch.Expected
	}

	api.AbortWithAPIError(ctx, status, err, body)
}
