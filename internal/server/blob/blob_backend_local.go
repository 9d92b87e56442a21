package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/openmined/songbox/internal/utils"
)

// LocalBackend keeps objects as files under a root directory
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) (*LocalBackend, error) {
	root, err := utils.ResolvePath(root)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("ensure blob dir: %w", err)
	}
	return &LocalBackend{root: root}, nil
}

func (l *LocalBackend) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *LocalBackend) GetObject(ctx context.Context, key string) (*GetObjectResponse, error) {
	if !ValidateKey(key) {
		return nil, ErrInvalidKey
	}

	f, err := os.Open(l.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	} else if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &GetObjectResponse{
		Body:         f,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
	}, nil
}

// PutObject writes the body to a temporary file and renames it into place, so
// readers never see a partially written object
func (l *LocalBackend) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	if !ValidateKey(params.Key) {
		return nil, ErrInvalidKey
	}

	dst := l.path(params.Key)
	if err := utils.EnsureParent(dst); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	hash := md5.New()
	written, err := io.Copy(io.MultiWriter(tmp, hash), &contextReader{ctx: ctx, r: params.Body})
	if err == nil && written != params.Size {
		err = fmt.Errorf("short write: wrote %d of %d bytes", written, params.Size)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, err
	}

	return &PutObjectResponse{
		Key:          params.Key,
		Size:         written,
		ETag:         hex.EncodeToString(hash.Sum(nil)),
		LastModified: time.Now().UTC(),
	}, nil
}

func (l *LocalBackend) DeleteObject(ctx context.Context, key string) (bool, error) {
	if !ValidateKey(key) {
		return false, ErrInvalidKey
	}

	if err := os.Remove(l.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// contextReader stops a copy once the context is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var _ Backend = (*LocalBackend)(nil)
