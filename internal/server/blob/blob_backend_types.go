package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrInvalidKey     = errors.New("invalid key")
	ErrObjectNotFound = errors.New("object not found")
)

// Backend stores finalized uploads. It is implemented by S3Backend for
// S3-compatible object stores and by LocalBackend for a directory on disk.
type Backend interface {
	// GetObject retrieves an object from storage by its key
	GetObject(ctx context.Context, key string) (*GetObjectResponse, error)

	// PutObject uploads a single object to storage
	PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error)

	// DeleteObject removes an object from storage, returns true if successful
	DeleteObject(ctx context.Context, key string) (bool, error)
}

// ===================================================================================================

type GetObjectResponse struct {
	Body         io.ReadCloser
	ETag         string
	Size         int64
	LastModified time.Time
}

// ===================================================================================================

type PutObjectParams struct {
	Key         string
	Size        int64
	ContentType string
	Body        io.Reader
}

type PutObjectResponse struct {
	Key          string
	Version      string
	ETag         string
	Size         int64
	LastModified time.Time
}
