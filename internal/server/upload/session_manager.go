package upload

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openmined/songbox/internal/server/blob"
)

// sessionEntry is a live session in the table.
//
// The writer slot serializes SendChunk and Complete, so chunks for one session
// are accepted one at a time. It is held for the whole request, body read included.
// mu guards session, closed and busy and is only held for short state changes.
type sessionEntry struct {
	writer  chan struct{}
	mu      sync.Mutex
	session Session
	closed  bool // torn down, the index holds the final state
	busy    bool // a writer owns the session, it must not be expired under it
}

func newSessionEntry(s Session) *sessionEntry {
	return &sessionEntry{
		writer:  make(chan struct{}, 1),
		session: s,
	}
}

// lockWriter waits for the writer slot or for ctx to end
func (e *sessionEntry) lockWriter(ctx context.Context) error {
	select {
	case e.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *sessionEntry) unlockWriter() {
	<-e.writer
}

// SessionManager owns the process-wide table of live upload sessions.
// All reads and writes of upload state go through it.
//
// Lock order: entry writer slot, then entry mutex, then table mutex.
type SessionManager struct {
	config  *Config
	policy  *mediaPolicy
	index   *SessionIndex
	staging *stagingArea
	blob    blob.Backend
	now     func() time.Time

	mu            sync.Mutex
	sessions      map[string]*sessionEntry
	byFingerprint map[string]string
}

type Option func(*SessionManager)

// WithClock replaces the wall clock, used for expiry decisions
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) {
		m.now = now
	}
}

func NewSessionManager(cfg *Config, db *sqlx.DB, backend blob.Backend, opts ...Option) (*SessionManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	index, err := newSessionIndex(db)
	if err != nil {
		return nil, err
	}

	staging, err := newStagingArea(cfg.StagingDir)
	if err != nil {
		return nil, err
	}

	m := &SessionManager{
		config:  cfg,
		policy:  newMediaPolicy(cfg),
		index:   index,
		staging: staging,
		blob:    backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start recovers live sessions from the index into the session table
func (m *SessionManager) Start(ctx context.Context) error {
	slog.Debug("upload session manager start")

	live, err := m.index.ListLive(ctx)
	if err != nil {
		return err
	}

	recovered := 0
	for _, s := range live {
		entry := newSessionEntry(*s)
		if entry.session.Status == StatusInProgress {
			entry.session.Status = StatusPending
		}
		entry.mu.Lock()
		if err := m.recoverStaging(entry); err != nil {
			slog.Warn("upload session not recoverable", "sessionId", s.ID, "error", err)
			m.failLocked(ctx, entry, err)
			entry.mu.Unlock()
			continue
		}
		m.mu.Lock()
		m.insertLocked(entry)
		m.mu.Unlock()
		entry.mu.Unlock()
		recovered++
	}

	slog.Info("upload sessions recovered", "count", recovered, "failed", len(live)-recovered)
	return nil
}

// Shutdown releases the index
func (m *SessionManager) Shutdown(ctx context.Context) error {
	slog.Debug("upload session manager shutdown")

	m.mu.Lock()
	m.sessions = nil
	m.byFingerprint = nil
	m.mu.Unlock()

	return m.index.Close()
}

// recoverStaging reconciles the staged bytes with the recorded offset.
// Extra bytes come from a write that was not committed to the index and are dropped.
func (m *SessionManager) recoverStaging(e *sessionEntry) error {
	s := &e.session
	size, err := m.staging.Size(s.ID)
	if errors.Is(err, fs.ErrNotExist) && s.ReceivedBytes == 0 {
		return m.staging.Create(s.ID)
	} else if err != nil {
		return storageFailure("stat staged file", err)
	}

	if size < s.ReceivedBytes {
		return storageFailure("recover staged file", fmt.Errorf("staged %d bytes, recorded %d", size, s.ReceivedBytes))
	}
	if size > s.ReceivedBytes {
		if err := m.staging.Truncate(s.ID, s.ReceivedBytes); err != nil {
			return storageFailure("truncate staged file", err)
		}
	}
	return nil
}

// ===================================================================================================

// CreateSession registers a new upload for a fingerprint. At most one live session
// may exist per fingerprint; a second one fails with a *ConflictError.
func (m *SessionManager) CreateSession(ctx context.Context, params *CreateSessionParams) (*Session, error) {
	fingerprint := strings.ToLower(params.Fingerprint)
	if !isSHA256Hex(fingerprint) {
		return nil, invalidRequest("fingerprint must be a hex encoded sha-256 digest")
	}
	if params.TotalSize < 0 {
		return nil, invalidRequest("totalSize must not be negative")
	}
	if params.TotalSize > m.config.MaxUploadSize {
		return nil, invalidRequest("totalSize %d exceeds the limit of %d bytes", params.TotalSize, m.config.MaxUploadSize)
	}
	if !m.policy.AllowsName(params.Name) {
		return nil, fmt.Errorf("%w: file extension of %q is not accepted", ErrUnsupportedMedia, params.Name)
	}

	entry, err := m.reserve(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	now := m.now().UTC()
	entry.session = Session{
		ID:          entry.session.ID,
		Fingerprint: fingerprint,
		Name:        params.Name,
		TotalSize:   params.TotalSize,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.staging.Create(entry.session.ID); err != nil {
		m.discardLocked(entry)
		return nil, storageFailure("create staged file", err)
	}
	if err := m.index.Insert(ctx, &entry.session); err != nil {
		_ = m.staging.Remove(entry.session.ID)
		m.discardLocked(entry)
		return nil, storageFailure("insert session", err)
	}

	slog.Info("upload session created",
		"sessionId", entry.session.ID,
		"fingerprint", fingerprint,
		"size", humanize.Bytes(uint64(params.TotalSize)),
	)
	s := entry.session
	return &s, nil
}

// reserve claims the fingerprint and publishes a locked, empty entry for it.
// An existing entry past its inactivity deadline is expired first.
func (m *SessionManager) reserve(ctx context.Context, fingerprint string) (*sessionEntry, error) {
	for {
		m.mu.Lock()
		existingID, claimed := m.byFingerprint[fingerprint]
		if !claimed {
			entry := newSessionEntry(Session{ID: uuid.NewString(), Fingerprint: fingerprint})
			entry.mu.Lock() // unpublished, cannot block
			m.insertLocked(entry)
			m.mu.Unlock()
			return entry, nil
		}
		existing := m.sessions[existingID]
		if existing == nil {
			delete(m.byFingerprint, fingerprint)
			m.mu.Unlock()
			continue
		}
		m.mu.Unlock()

		existing.mu.Lock()
		if !existing.closed && !m.expireIfIdleLocked(ctx, existing) {
			existing.mu.Unlock()
			return nil, &ConflictError{SessionID: existingID, Fingerprint: fingerprint}
		}
		existing.mu.Unlock()
	}
}

// GetStatus returns a snapshot of the session
func (m *SessionManager) GetStatus(ctx context.Context, id string) (*Session, error) {
	entry := m.lookup(id)
	if entry == nil {
		return m.index.Get(ctx, id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed {
		return m.index.Get(ctx, id)
	}

	m.expireIfIdleLocked(ctx, entry)
	s := entry.session
	return &s, nil
}

// ExpiresAt is the inactivity deadline of a live session
func (m *SessionManager) ExpiresAt(s *Session) time.Time {
	return s.UpdatedAt.Add(m.config.SessionTimeout)
}

// acquire claims the writer slot of the live entry for id and marks it busy,
// or returns the error describing why the session cannot be mutated.
// The caller reads the session freely, changes it under e.mu and calls release.
func (m *SessionManager) acquire(ctx context.Context, id string) (*sessionEntry, error) {
	entry := m.lookup(id)
	if entry != nil {
		if err := entry.lockWriter(ctx); err != nil {
			return nil, err
		}
		entry.mu.Lock()
		if !entry.closed {
			if m.expireIfIdleLocked(ctx, entry) {
				entry.mu.Unlock()
				entry.unlockWriter()
				return nil, ErrExpired
			}
			entry.busy = true
			entry.mu.Unlock()
			return entry, nil
		}
		entry.mu.Unlock()
		entry.unlockWriter()
	}

	s, err := m.index.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, terminalError(s)
}

// release gives back the writer slot taken by acquire. A chunk that did not
// finish leaves the session pending.
func (m *SessionManager) release(e *sessionEntry) {
	e.mu.Lock()
	e.busy = false
	if e.session.Status == StatusInProgress {
		e.session.Status = StatusPending
	}
	e.mu.Unlock()
	e.unlockWriter()
}

func (m *SessionManager) lookup(id string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// insertLocked adds an entry to the table, creating the table on first use.
// Caller holds m.mu.
func (m *SessionManager) insertLocked(e *sessionEntry) {
	if m.sessions == nil {
		m.sessions = make(map[string]*sessionEntry)
		m.byFingerprint = make(map[string]string)
	}
	m.sessions[e.session.ID] = e
	m.byFingerprint[e.session.Fingerprint] = e.session.ID
}

// discardLocked tears the entry down and removes it from the table.
// Caller holds e.mu.
func (m *SessionManager) discardLocked(e *sessionEntry) {
	e.closed = true

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[e.session.ID] == e {
		delete(m.sessions, e.session.ID)
	}
	if m.byFingerprint[e.session.Fingerprint] == e.session.ID {
		delete(m.byFingerprint, e.session.Fingerprint)
	}
}

// finishLocked moves the session to a terminal status, persists it, releases its
// staged bytes and tears the entry down. Caller holds e.mu.
func (m *SessionManager) finishLocked(ctx context.Context, e *sessionEntry, status Status) error {
	e.session.Status = status
	e.session.UpdatedAt = m.now().UTC()

	err := m.index.Update(context.WithoutCancel(ctx), &e.session)
	if rmErr := m.staging.Remove(e.session.ID); rmErr != nil {
		slog.Warn("remove staged file", "sessionId", e.session.ID, "error", rmErr)
	}
	m.discardLocked(e)
	return err
}

// fail locks the entry and aborts the session
func (m *SessionManager) fail(ctx context.Context, e *sessionEntry, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m.failLocked(ctx, e, cause)
}

// failLocked aborts the session after a fatal error. Caller holds e.mu.
func (m *SessionManager) failLocked(ctx context.Context, e *sessionEntry, cause error) {
	e.session.Error = publicReason(cause)
	if err := m.finishLocked(ctx, e, StatusFailed); err != nil {
		slog.Error("persist failed session", "sessionId", e.session.ID, "error", err)
	}
	slog.Warn("upload session failed", "sessionId", e.session.ID, "error", cause)
}

// expireIfIdleLocked expires the session when its inactivity deadline has passed
// and reports whether it did. A session owned by a writer is never idle.
// Caller holds e.mu.
func (m *SessionManager) expireIfIdleLocked(ctx context.Context, e *sessionEntry) bool {
	if e.busy || m.now().Before(m.ExpiresAt(&e.session)) {
		return false
	}
	if err := m.finishLocked(ctx, e, StatusExpired); err != nil {
		slog.Error("persist expired session", "sessionId", e.session.ID, "error", err)
	}
	slog.Info("upload session expired", "sessionId", e.session.ID, "receivedBytes", e.session.ReceivedBytes)
	return true
}

// touchLocked persists progress. Caller holds e.mu.
func (m *SessionManager) touchLocked(ctx context.Context, e *sessionEntry) error {
	e.session.UpdatedAt = m.now().UTC()
	return m.index.Update(context.WithoutCancel(ctx), &e.session)
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
