package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/openmined/songbox/internal/server/blob"
)

const objectKeyPrefix = "uploads/"

// Complete finalizes a fully received session: it verifies the assembled file
// against the fingerprint, checks its content type and stores it in the blob
// backend. Completing an already complete session returns the same result.
func (m *SessionManager) Complete(ctx context.Context, id string) (*Session, error) {
	entry, err := m.acquire(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			if s, getErr := m.index.Get(ctx, id); getErr == nil && s.Status == StatusComplete {
				return s, nil
			}
		}
		return nil, err
	}
	defer m.release(entry)

	s := &entry.session
	if s.ReceivedBytes != s.TotalSize {
		return nil, fmt.Errorf("%w: received %d of %d bytes", ErrIncomplete, s.ReceivedBytes, s.TotalSize)
	}

	digest, err := m.digestStaged(s.ID)
	if err != nil {
		m.fail(ctx, entry, err)
		return nil, err
	}
	if digest != s.Fingerprint {
		err := fmt.Errorf("%w: assembled file hashes to %s, expected %s", ErrChecksumMismatch, digest, s.Fingerprint)
		m.fail(ctx, entry, err)
		return nil, err
	}

	mtype, err := mimetype.DetectFile(m.staging.Path(s.ID))
	if err != nil {
		err = storageFailure("detect content type", err)
		m.fail(ctx, entry, err)
		return nil, err
	}
	if !m.policy.AllowsContentType(mtype) {
		err := fmt.Errorf("%w: %s", ErrUnsupportedMedia, mtype.String())
		m.fail(ctx, entry, err)
		return nil, err
	}

	resp, err := m.storeStaged(ctx, s, mtype.String())
	if err != nil {
		err = storageFailure("store object", err)
		m.fail(ctx, entry, err)
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	s.ObjectKey = resp.Key
	s.ETag = resp.ETag
	s.ContentType = mtype.String()
	if err := m.finishLocked(ctx, entry, StatusComplete); err != nil {
		// the index still says the session is live, do not leave an orphaned object behind
		if _, delErr := m.blob.DeleteObject(context.WithoutCancel(ctx), resp.Key); delErr != nil {
			slog.Error("delete orphaned object", "key", resp.Key, "error", delErr)
		}
		return nil, storageFailure("record completion", err)
	}

	slog.Info("upload session complete",
		"sessionId", s.ID,
		"key", s.ObjectKey,
		"size", humanize.Bytes(uint64(s.TotalSize)),
		"contentType", s.ContentType,
	)
	result := *s
	return &result, nil
}

func (m *SessionManager) digestStaged(id string) (string, error) {
	f, err := m.staging.Open(id)
	if err != nil {
		return "", storageFailure("open staged file", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", storageFailure("read staged file", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (m *SessionManager) storeStaged(ctx context.Context, s *Session, contentType string) (*blob.PutObjectResponse, error) {
	f, err := m.staging.Open(s.ID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return m.blob.PutObject(ctx, &blob.PutObjectParams{
		Key:         objectKey(s),
		Size:        s.TotalSize,
		ContentType: contentType,
		Body:        f,
	})
}

// objectKey is content addressed, so re-uploading a file overwrites the same object
func objectKey(s *Session) string {
	return objectKeyPrefix + s.Fingerprint + strings.ToLower(filepath.Ext(s.Name))
}
