package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/openmined/songbox/internal/utils"
)

// stagingArea holds one partial file per live session. These files are the
// server-side buffer released when a session completes, fails or expires.
type stagingArea struct {
	dir string
}

func newStagingArea(dir string) (*stagingArea, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure staging dir: %w", err)
	}
	return &stagingArea{dir: dir}, nil
}

func (s *stagingArea) Path(id string) string {
	return filepath.Join(s.dir, id+".part")
}

func (s *stagingArea) Create(id string) error {
	f, err := os.OpenFile(s.Path(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteAt writes data at offset and syncs it to disk. On failure the file is
// truncated back to offset so no partial chunk remains.
func (s *stagingArea) WriteAt(id string, offset int64, data []byte) error {
	f, err := os.OpenFile(s.Path(id), os.O_WRONLY, 0)
	if err != nil {
		return err
	}

	_, err = f.WriteAt(data, offset)
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		_ = f.Truncate(offset)
		f.Close()
		return err
	}
	return f.Close()
}

func (s *stagingArea) Truncate(id string, size int64) error {
	return os.Truncate(s.Path(id), size)
}

// Size returns the staged size, or fs.ErrNotExist when nothing is staged
func (s *stagingArea) Size(id string) (int64, error) {
	info, err := os.Stat(s.Path(id))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *stagingArea) Open(id string) (*os.File, error) {
	return os.Open(s.Path(id))
}

func (s *stagingArea) Remove(id string) error {
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
