package songsdk

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/openmined/songbox/internal/utils"
)

// Uploader sends files through resumable upload sessions. Progress survives
// dropped connections and process restarts: the session id is kept in a resume
// file and the server's receivedBytes decides where to continue.
type Uploader struct {
	sessions    *SessionAPI
	fingerprint *Fingerprinter
	config      UploaderConfig
}

func NewUploader(sdk *SongSDK, config UploaderConfig) (*Uploader, error) {
	if config.ResumeDir == "" {
		config.ResumeDir = filepath.Join(os.TempDir(), "songbox-resume")
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryWait <= 0 {
		config.RetryWait = DefaultRetryWait
	}

	fp, err := NewFingerprinter(0)
	if err != nil {
		return nil, err
	}

	return &Uploader{
		sessions:    sdk.Sessions,
		fingerprint: fp,
		config:      config,
	}, nil
}

// Upload sends the file and completes the session. If ctx is cancelled midway,
// calling Upload again with the same file resumes from the last accepted chunk.
func (u *Uploader) Upload(ctx context.Context, params *UploadParams) (*UploadResult, error) {
	path, err := utils.ResolvePath(params.FilePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	if err := utils.EnsureDir(u.config.ResumeDir); err != nil {
		return nil, fmt.Errorf("ensure resume dir: %w", err)
	}

	statePath := u.statePath(path)
	lock := flock.New(statePath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock resume file: %w", err)
	}
	if !locked {
		return nil, ErrUploadInProgress
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	fingerprint, err := u.fingerprintOf(path, info, statePath)
	if err != nil {
		return nil, err
	}

	name := params.Name
	if name == "" {
		name = filepath.Base(path)
	}

	run := &uploadRun{
		uploader:  u,
		params:    params,
		file:      file,
		statePath: statePath,
		state: resumeState{
			FilePath:    path,
			Fingerprint: fingerprint,
			Size:        info.Size(),
			ModTime:     info.ModTime().UnixNano(),
		},
		name: name,
	}
	return run.execute(ctx)
}

// fingerprintOf hashes the file unless the resume file of an earlier run
// recorded its digest for the same size and modification time.
func (u *Uploader) fingerprintOf(path string, info os.FileInfo, statePath string) (string, error) {
	if prev, err := readState(statePath); err == nil && prev.FilePath == path &&
		prev.Size == info.Size() && prev.ModTime == info.ModTime().UnixNano() && isDigest(prev.Fingerprint) {
		u.fingerprint.Remember(path, info, prev.Fingerprint)
	}
	return u.fingerprint.Fingerprint(path, info)
}

// statePath is keyed by the file path, one resume file per local file
func (u *Uploader) statePath(path string) string {
	hash := sha1.Sum([]byte(path))
	return filepath.Join(u.config.ResumeDir, hex.EncodeToString(hash[:])+".json")
}

// ===================================================================================================

type uploadRun struct {
	uploader  *Uploader
	params    *UploadParams
	file      io.ReaderAt
	statePath string
	state     resumeState
	name      string
	resumed   bool
	sent      int64
}

func (r *uploadRun) execute(ctx context.Context) (*UploadResult, error) {
	offset, err := r.openSession(ctx)
	if err != nil {
		return nil, err
	}

	if r.resumed {
		slog.Info("upload resume", "sessionId", r.state.SessionID, "offset", offset, "size", r.state.Size)
	}
	r.progress(offset)

	for attempt := 0; ; attempt++ {
		if err := r.sendFrom(ctx, offset); err != nil {
			return nil, err
		}

		result, err := r.uploader.sessions.Complete(ctx, r.state.SessionID)
		if err == nil {
			r.removeState()
			slog.Info("upload complete", "sessionId", result.SessionID, "key", result.Key, "size", result.Size)
			return &UploadResult{CompleteResponse: result, Resumed: r.resumed, Sent: r.sent}, nil
		}

		// the server is missing bytes it once confirmed, continue from its view
		if !errors.Is(err, ErrUploadIncomplete) || attempt >= r.uploader.config.MaxRetries {
			return nil, r.fatal(err)
		}
		session, getErr := r.uploader.sessions.Get(ctx, r.state.SessionID)
		if getErr != nil {
			return nil, r.fatal(getErr)
		}
		offset = session.ReceivedBytes
	}
}

// openSession resumes the session named in the resume file, or creates one.
// It returns the offset to continue from.
func (r *uploadRun) openSession(ctx context.Context) (int64, error) {
	if prev, ok := r.loadState(); ok {
		session, err := r.uploader.sessions.Get(ctx, prev.SessionID)
		switch {
		case err == nil && (session.Status.IsLive() || session.Status == StatusComplete):
			r.state.SessionID = session.SessionID
			r.resumed = true
			return session.ReceivedBytes, nil
		case err == nil, errors.Is(err, ErrSessionNotFound):
			slog.Debug("upload resume discarded", "sessionId", prev.SessionID, "error", err)
			r.removeState()
		default:
			return 0, err
		}
	}

	session, err := r.uploader.sessions.Create(ctx, &CreateSessionRequest{
		Fingerprint: r.state.Fingerprint,
		TotalSize:   r.state.Size,
		Name:        r.name,
	})
	if err != nil {
		// another run left a live session for the same content, adopt it
		apiErr := apiErrorOf(err)
		if !errors.Is(err, ErrSessionConflict) || apiErr == nil || apiErr.SessionID == "" {
			return 0, err
		}
		session, err = r.uploader.sessions.Get(ctx, apiErr.SessionID)
		if err != nil {
			return 0, err
		}
		r.resumed = true
	}

	r.state.SessionID = session.SessionID
	if err := r.saveState(); err != nil {
		return 0, err
	}
	return session.ReceivedBytes, nil
}

// sendFrom sends chunks from offset until the server has the whole file
func (r *uploadRun) sendFrom(ctx context.Context, offset int64) error {
	cfg := r.uploader.config
	buf := make([]byte, cfg.ChunkSize)
	attempt := 0

	for offset < r.state.Size {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := min(cfg.ChunkSize, r.state.Size-offset)
		chunk := buf[:n]
		if _, err := r.file.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read chunk at %d: %w", offset, err)
		}

		received, err := r.uploader.sessions.PutChunk(ctx, r.state.SessionID, offset, chunk)
		switch {
		case err == nil:
			r.confirm(offset, received)
			offset = received
			attempt = 0
			r.progress(offset)
			continue

		case errors.Is(err, ErrOffsetMismatch):
			next, syncErr := r.resync(ctx, err)
			if syncErr != nil {
				return r.fatal(syncErr)
			}
			slog.Debug("upload resync", "sessionId", r.state.SessionID, "offset", offset, "next", next)
			r.confirm(offset, next)
			offset = next
			attempt = 0
			r.progress(offset)
			continue

		case isFatal(err) || ctx.Err() != nil:
			return r.fatal(err)
		}

		attempt++
		if attempt > cfg.MaxRetries {
			return fmt.Errorf("chunk at offset %d failed after %d attempts: %w", offset, attempt, err)
		}
		wait := cfg.RetryWait << (attempt - 1)
		slog.Warn("upload chunk retry", "sessionId", r.state.SessionID, "offset", offset, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

// resync returns the offset the server expects
func (r *uploadRun) resync(ctx context.Context, err error) (int64, error) {
	if apiErr := apiErrorOf(err); apiErr != nil && apiErr.ReceivedBytes != nil {
		return *apiErr.ReceivedBytes, nil
	}
	session, err := r.uploader.sessions.Get(ctx, r.state.SessionID)
	if err != nil {
		return 0, err
	}
	return session.ReceivedBytes, nil
}

// fatal drops the resume file when the session can never be continued
func (r *uploadRun) fatal(err error) error {
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrStorageFailure) ||
		errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionConflict) ||
		errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrUnsupportedMedia) {
		r.removeState()
	}
	return err
}

// confirm counts the bytes the server acknowledged past offset
func (r *uploadRun) confirm(offset, received int64) {
	if received > offset {
		r.sent += received - offset
	}
}

func (r *uploadRun) progress(uploaded int64) {
	if r.params.Callback != nil {
		r.params.Callback(uploaded, r.state.Size)
	}
}

func readState(path string) (*resumeState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state resumeState
	if err := jsonUnmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode resume file: %w", err)
	}
	return &state, nil
}

func (r *uploadRun) loadState() (*resumeState, bool) {
	prev, err := readState(r.statePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false
	} else if err != nil {
		slog.Warn("read resume file", "path", r.statePath, "error", err)
		r.removeState()
		return nil, false
	}

	// the file changed since the last attempt
	if prev.SessionID == "" || prev.FilePath != r.state.FilePath ||
		prev.Fingerprint != r.state.Fingerprint || prev.Size != r.state.Size {
		r.removeState()
		return nil, false
	}
	return prev, true
}

func (r *uploadRun) saveState() error {
	data, err := jsonMarshal(&r.state)
	if err != nil {
		return fmt.Errorf("encode resume file: %w", err)
	}
	tmp := r.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write resume file: %w", err)
	}
	return os.Rename(tmp, r.statePath)
}

func (r *uploadRun) removeState() {
	if err := os.Remove(r.statePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("remove resume file", "path", r.statePath, "error", err)
	}
}

// isFatal reports errors a retry of the same chunk cannot fix
func isFatal(err error) bool {
	return errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrStorageFailure) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionConflict) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnsupportedMedia)
}

func isDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
