package songsdk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/openmined/songbox/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAPI_Errors(t *testing.T) {
	ts := newTestServer(t)
	sdk := newTestSDK(t, ts)
	ctx := context.Background()

	data := []byte("ID3 a very short song")
	sum := sha256.Sum256(data)
	fp := hex.EncodeToString(sum[:])

	session, err := sdk.Sessions.Create(ctx, &CreateSessionRequest{Fingerprint: fp, TotalSize: int64(len(data)), Name: "a.mp3"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, session.Status)
	require.NotNil(t, session.ExpiresAt)

	t.Run("conflict", func(t *testing.T) {
		_, err := sdk.Sessions.Create(ctx, &CreateSessionRequest{Fingerprint: fp, TotalSize: int64(len(data))})
		require.ErrorIs(t, err, ErrSessionConflict)
		apiErr := apiErrorOf(err)
		require.NotNil(t, apiErr)
		assert.Equal(t, session.SessionID, apiErr.SessionID)
	})

	received, err := sdk.Sessions.PutChunk(ctx, session.SessionID, 0, data[:5])
	require.NoError(t, err)
	assert.Equal(t, int64(5), received)

	t.Run("offset mismatch", func(t *testing.T) {
		_, err := sdk.Sessions.PutChunk(ctx, session.SessionID, 0, data[:5])
		require.ErrorIs(t, err, ErrOffsetMismatch)
		apiErr := apiErrorOf(err)
		require.NotNil(t, apiErr.ReceivedBytes)
		assert.Equal(t, int64(5), *apiErr.ReceivedBytes)
	})

	t.Run("incomplete", func(t *testing.T) {
		_, err := sdk.Sessions.Complete(ctx, session.SessionID)
		assert.ErrorIs(t, err, ErrUploadIncomplete)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := sdk.Sessions.Get(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.False(t, errors.Is(err, ErrSessionConflict))
	})

	_, err = sdk.Sessions.PutChunk(ctx, session.SessionID, 5, data[5:])
	require.NoError(t, err)
	done, err := sdk.Sessions.Complete(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, fp, done.Fingerprint)

	again, err := sdk.Sessions.Complete(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, done, again)
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Config{}).Validate(), ErrNoServerURL)
	assert.ErrorIs(t, (&Config{BaseURL: "localhost:8080"}).Validate(), ErrInvalidServerURL)

	cfg := &Config{BaseURL: DefaultBaseURL, RetryCount: -1}
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.RetryCount)
	assert.Equal(t, DefaultRetryWait, cfg.RetryWait)
}

func TestSongSDK_ServerVersion(t *testing.T) {
	ts := newTestServer(t)
	sdk := newTestSDK(t, ts)

	banner, err := sdk.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, version.DetailedWithApp(), banner)
}
