package upload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS upload_sessions (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	total_size INTEGER NOT NULL,
	received_bytes INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	object_key TEXT NOT NULL DEFAULT '',
	etag TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_upload_sessions_fingerprint ON upload_sessions(fingerprint);
CREATE INDEX IF NOT EXISTS idx_upload_sessions_status ON upload_sessions(status);
`

const selectSessionSQL = `SELECT id, fingerprint, name, total_size, received_bytes, status,
	content_type, object_key, etag, error, created_at, updated_at FROM upload_sessions`

// sessionRow is the on-disk shape of a Session. Times are unix milliseconds.
type sessionRow struct {
	ID            string `db:"id"`
	Fingerprint   string `db:"fingerprint"`
	Name          string `db:"name"`
	TotalSize     int64  `db:"total_size"`
	ReceivedBytes int64  `db:"received_bytes"`
	Status        string `db:"status"`
	ContentType   string `db:"content_type"`
	ObjectKey     string `db:"object_key"`
	ETag          string `db:"etag"`
	Error         string `db:"error"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

func toRow(s *Session) *sessionRow {
	return &sessionRow{
		ID:            s.ID,
		Fingerprint:   s.Fingerprint,
		Name:          s.Name,
		TotalSize:     s.TotalSize,
		ReceivedBytes: s.ReceivedBytes,
		Status:        string(s.Status),
		ContentType:   s.ContentType,
		ObjectKey:     s.ObjectKey,
		ETag:          s.ETag,
		Error:         s.Error,
		CreatedAt:     s.CreatedAt.UnixMilli(),
		UpdatedAt:     s.UpdatedAt.UnixMilli(),
	}
}

func (r *sessionRow) toSession() *Session {
	return &Session{
		ID:            r.ID,
		Fingerprint:   r.Fingerprint,
		Name:          r.Name,
		TotalSize:     r.TotalSize,
		ReceivedBytes: r.ReceivedBytes,
		Status:        Status(r.Status),
		ContentType:   r.ContentType,
		ObjectKey:     r.ObjectKey,
		ETag:          r.ETag,
		Error:         r.Error,
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:     time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

// SessionIndex is the durable copy of the session table, stored in SQLite
type SessionIndex struct {
	db *sqlx.DB
}

func newSessionIndex(db *sqlx.DB) (*SessionIndex, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize session index: %w", err)
	}
	return &SessionIndex{db: db}, nil
}

// Close releases resources used by the index
func (si *SessionIndex) Close() error {
	return si.db.Close()
}

func (si *SessionIndex) Insert(ctx context.Context, s *Session) error {
	_, err := si.db.NamedExecContext(ctx, `INSERT INTO upload_sessions
		(id, fingerprint, name, total_size, received_bytes, status, content_type, object_key, etag, error, created_at, updated_at)
		VALUES (:id, :fingerprint, :name, :total_size, :received_bytes, :status, :content_type, :object_key, :etag, :error, :created_at, :updated_at)`,
		toRow(s),
	)
	return err
}

// Update writes the mutable fields of a session
func (si *SessionIndex) Update(ctx context.Context, s *Session) error {
	res, err := si.db.NamedExecContext(ctx, `UPDATE upload_sessions SET
		received_bytes = :received_bytes, status = :status, content_type = :content_type,
		object_key = :object_key, etag = :etag, error = :error, updated_at = :updated_at
		WHERE id = :id`,
		toRow(s),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the session with the given id, or ErrNotFound
func (si *SessionIndex) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	if err := si.db.GetContext(ctx, &row, selectSessionSQL+" WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toSession(), nil
}

// ListLive returns all sessions that have not reached a terminal status
func (si *SessionIndex) ListLive(ctx context.Context) ([]*Session, error) {
	var rows []*sessionRow
	err := si.db.SelectContext(ctx, &rows, selectSessionSQL+" WHERE status IN (?, ?) ORDER BY created_at",
		StatusPending, StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list live sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.toSession())
	}
	return sessions, nil
}

// PurgeTerminal deletes terminal sessions last updated before the cutoff
func (si *SessionIndex) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	res, err := si.db.ExecContext(ctx,
		"DELETE FROM upload_sessions WHERE status IN (?, ?, ?) AND updated_at < ?",
		StatusComplete, StatusFailed, StatusExpired, before.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
