package songsdk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/imroc/req/v3"
)

// SessionAPI wraps the upload session endpoints
type SessionAPI struct {
	client *req.Client
}

func newSessionAPI(client *req.Client) *SessionAPI {
	return &SessionAPI{client: client}
}

// Create starts a new upload session. If a live session already exists for the
// fingerprint the error matches ErrSessionConflict and carries its id.
func (s *SessionAPI) Create(ctx context.Context, params *CreateSessionRequest) (*Session, error) {
	var session Session
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&session).
		Post(routeSessions)
	if err := handleAPIError(resp, err, "create session"); err != nil {
		return nil, err
	}
	return &session, nil
}

// Get returns the server view of a session
func (s *SessionAPI) Get(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", sessionID).
		SetSuccessResult(&session).
		Get(routeSession)
	if err := handleAPIError(resp, err, "get session"); err != nil {
		return nil, err
	}
	return &session, nil
}

// PutChunk sends data at offset with its sha-256 checksum and returns the new receivedBytes
func (s *SessionAPI) PutChunk(ctx context.Context, sessionID string, offset int64, data []byte) (int64, error) {
	sum := sha256.Sum256(data)

	var result ChunkResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", sessionID).
		SetQueryParam("offset", strconv.FormatInt(offset, 10)).
		SetHeader(HeaderChecksum, hex.EncodeToString(sum[:])).
		SetContentType("application/octet-stream").
		SetBodyBytes(data).
		SetSuccessResult(&result).
		Put(routeSessionChunk)
	if err := handleAPIError(resp, err, "put chunk"); err != nil {
		return 0, err
	}
	return result.ReceivedBytes, nil
}

// Complete finalizes the upload. It is safe to call again after a lost response.
func (s *SessionAPI) Complete(ctx context.Context, sessionID string) (*CompleteResponse, error) {
	var result CompleteResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", sessionID).
		SetSuccessResult(&result).
		Post(routeSessionComplete)
	if err := handleAPIError(resp, err, "complete session"); err != nil {
		return nil, err
	}
	return &result, nil
}
