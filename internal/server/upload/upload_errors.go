package upload

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotFound         = errors.New("session not found")
	ErrConflict         = errors.New("session conflict")
	ErrOffsetMismatch   = errors.New("offset mismatch")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrExpired          = errors.New("session expired")
	ErrIncomplete       = errors.New("upload incomplete")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrStorageFailure   = errors.New("storage failure")
)

// ConflictError is returned when a live session already exists for a fingerprint.
// SessionID names that session so the caller can resume it.
type ConflictError struct {
	SessionID   string
	Fingerprint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session conflict: fingerprint %s is being uploaded by session %s", e.Fingerprint, e.SessionID)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// OffsetMismatchError carries the offset the server expects next
type OffsetMismatchError struct {
	Expected int64
	Got      int64
}

func (e *OffsetMismatchError) Error() string {
	return fmt.Sprintf("offset mismatch: expected %d, got %d", e.Expected, e.Got)
}

func (e *OffsetMismatchError) Unwrap() error {
	return ErrOffsetMismatch
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// StorageError is a failure of the staging area, the index or the blob backend.
// Err may name server paths, Reason does not.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageFailure, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// Reason is the failure without its cause, safe to show to clients
func (e *StorageError) Reason() string {
	return ErrStorageFailure.Error() + ": " + e.Op
}

func storageFailure(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// publicReason is the cause recorded on a failed session
func publicReason(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Reason()
	}
	return err.Error()
}

// terminalError maps a session that can no longer accept chunks onto the taxonomy
func terminalError(s *Session) error {
	switch s.Status {
	case StatusExpired:
		return ErrExpired
	case StatusComplete, StatusFailed:
		return fmt.Errorf("%w: session %s is %s", ErrConflict, s.ID, s.Status)
	default:
		return ErrNotFound
	}
}
