package songsdk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultFingerprintCacheSize = 256

// Fingerprinter computes the sha-256 of files. Results are cached by path,
// size and modification time, so resuming a large file does not hash it again.
type Fingerprinter struct {
	cache *lru.Cache[string, string]
}

func NewFingerprinter(size int) (*Fingerprinter, error) {
	if size <= 0 {
		size = defaultFingerprintCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Fingerprinter{cache: cache}, nil
}

// Fingerprint returns the lowercase hex sha-256 of the file at path
func (f *Fingerprinter) Fingerprint(path string, info os.FileInfo) (string, error) {
	key := cacheKey(path, info)
	if fp, ok := f.cache.Get(key); ok {
		return fp, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	fp := hex.EncodeToString(hash.Sum(nil))
	f.cache.Add(key, fp)
	return fp, nil
}

// Remember records a digest computed earlier, e.g. by a previous process, for
// the file as described by info.
func (f *Fingerprinter) Remember(path string, info os.FileInfo, fp string) {
	f.cache.Add(cacheKey(path, info), fp)
}

func cacheKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
}
