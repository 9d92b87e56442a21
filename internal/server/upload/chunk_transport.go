package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const checksumPrefix = "sha256="

// SendChunk appends one chunk to the session and returns the new receivedBytes.
//
// The chunk is accepted only when its offset equals the current receivedBytes and
// its payload hashes to the checksum. Rejected chunks leave the session unchanged.
// The session is in-progress only while the body is being received and is pending
// again once SendChunk returns, whatever the outcome.
func (m *SessionManager) SendChunk(ctx context.Context, params *ChunkParams, body io.Reader) (int64, error) {
	checksum, ok := normalizeChecksum(params.Checksum)
	if !ok {
		return 0, invalidRequest("checksum must be a hex encoded sha-256 digest")
	}

	entry, err := m.acquire(ctx, params.SessionID)
	if err != nil {
		return 0, err
	}
	defer m.release(entry)

	s := &entry.session
	if params.Offset != s.ReceivedBytes {
		return s.ReceivedBytes, &OffsetMismatchError{Expected: s.ReceivedBytes, Got: params.Offset}
	}

	entry.mu.Lock()
	s.Status = StatusInProgress
	entry.mu.Unlock()

	limit := min(m.config.MaxChunkSize, s.TotalSize-s.ReceivedBytes)
	hash := sha256.New()
	payload, err := io.ReadAll(io.TeeReader(io.LimitReader(body, limit+1), hash))
	if err != nil {
		slog.Info("upload session suspended", "sessionId", s.ID, "receivedBytes", s.ReceivedBytes, "error", err)
		return s.ReceivedBytes, invalidRequest("read chunk body: %v", err)
	}

	if len(payload) == 0 {
		return s.ReceivedBytes, invalidRequest("empty chunk")
	}
	if int64(len(payload)) > limit {
		return s.ReceivedBytes, invalidRequest("chunk larger than %d bytes at offset %d", limit, s.ReceivedBytes)
	}
	if got := hex.EncodeToString(hash.Sum(nil)); got != checksum {
		slog.Warn("chunk rejected", "sessionId", s.ID, "offset", params.Offset, "reason", "checksum")
		return s.ReceivedBytes, fmt.Errorf("%w: chunk at offset %d hashes to %s", ErrChecksumMismatch, params.Offset, got)
	}

	if err := m.staging.WriteAt(s.ID, params.Offset, payload); err != nil {
		err = storageFailure("write chunk", err)
		m.fail(ctx, entry, err)
		return params.Offset, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	s.ReceivedBytes += int64(len(payload))
	s.Status = StatusPending
	if err := m.touchLocked(ctx, entry); err != nil {
		// the index is the source of truth for progress, drop the uncommitted bytes
		s.ReceivedBytes = params.Offset
		if truncErr := m.staging.Truncate(s.ID, params.Offset); truncErr != nil {
			slog.Error("truncate staged file", "sessionId", s.ID, "error", truncErr)
		}
		err = storageFailure("record chunk", err)
		m.failLocked(ctx, entry, err)
		return params.Offset, err
	}

	slog.Debug("chunk accepted", "sessionId", s.ID, "offset", params.Offset, "length", len(payload), "receivedBytes", s.ReceivedBytes)
	return s.ReceivedBytes, nil
}

func normalizeChecksum(checksum string) (string, bool) {
	checksum = strings.ToLower(strings.TrimSpace(checksum))
	checksum = strings.TrimPrefix(checksum, checksumPrefix)
	return checksum, isSHA256Hex(checksum)
}
