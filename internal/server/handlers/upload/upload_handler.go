package upload

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/songbox/internal/server/handlers/api"
	"github.com/openmined/songbox/internal/server/upload"
)

type UploadHandler struct {
	mgr *upload.SessionManager
}

func New(mgr *upload.SessionManager) *UploadHandler {
	return &UploadHandler{mgr: mgr}
}

// CreateSession handles POST /sessions
func (h *UploadHandler) CreateSession(ctx *gin.Context) {
	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("failed to bind json: %w", err))
		return
	}

	s, err := h.mgr.CreateSession(ctx.Request.Context(), &upload.CreateSessionParams{
		Fingerprint: req.Fingerprint,
		TotalSize:   *req.TotalSize,
		Name:        req.Name,
	})
	if err != nil {
		abortWithUploadError(ctx, "", err)
		return
	}

	ctx.PureJSON(http.StatusCreated, h.sessionResponse(s))
}

// GetSession handles GET /sessions/:id
func (h *UploadHandler) GetSession(ctx *gin.Context) {
	var uri SessionURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	s, err := h.mgr.GetStatus(ctx.Request.Context(), uri.SessionID)
	if err != nil {
		abortWithUploadError(ctx, uri.SessionID, err)
		return
	}

	ctx.PureJSON(http.StatusOK, h.sessionResponse(s))
}

// PutChunk handles PUT /sessions/:id/chunk?offset=N with the raw chunk as body
// and its sha-256 in the X-Checksum header.
func (h *UploadHandler) PutChunk(ctx *gin.Context) {
	var uri SessionURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	var query ChunkQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		api.AbortWithAPIError(ctx, http.StatusBadRequest, fmt.Errorf("failed to bind query: %w", err), &api.APIError{
			Code:      api.CodeInvalidRequest,
			Message:   "offset query parameter must be a non-negative integer",
			SessionID: uri.SessionID,
		})
		return
	}

	received, err := h.mgr.SendChunk(ctx.Request.Context(), &upload.ChunkParams{
		SessionID: uri.SessionID,
		Offset:    *query.Offset,
		Checksum:  ctx.GetHeader(HeaderChecksum),
	}, ctx.Request.Body)
	if err != nil {
		abortWithUploadError(ctx, uri.SessionID, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &ChunkResponse{
		SessionID:     uri.SessionID,
		ReceivedBytes: received,
	})
}

// Complete handles POST /sessions/:id/complete
func (h *UploadHandler) Complete(ctx *gin.Context) {
	var uri SessionURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	s, err := h.mgr.Complete(ctx.Request.Context(), uri.SessionID)
	if err != nil {
		abortWithUploadError(ctx, uri.SessionID, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &CompleteResponse{
		SessionID:   s.ID,
		Key:         s.ObjectKey,
		Size:        s.TotalSize,
		Fingerprint: s.Fingerprint,
		ContentType: s.ContentType,
		ETag:        s.ETag,
	})
}

func (h *UploadHandler) sessionResponse(s *upload.Session) *SessionResponse {
	resp := &SessionResponse{
		SessionID:     s.ID,
		Fingerprint:   s.Fingerprint,
		Name:          s.Name,
		TotalSize:     s.TotalSize,
		ReceivedBytes: s.ReceivedBytes,
		Status:        s.Status,
		Error:         s.Error,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if !s.Status.IsTerminal() {
		expiresAt := h.mgr.ExpiresAt(s)
		resp.ExpiresAt = &expiresAt
	}
	return resp
}
