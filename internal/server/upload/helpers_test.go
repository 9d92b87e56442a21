package upload

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/openmined/songbox/internal/db"
	"github.com/openmined/songbox/internal/server/blob"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	t       *testing.T
	dir     string
	config  *Config
	clock   *fakeClock
	backend *blob.LocalBackend
	mgr     *SessionManager
}

// newTestEnv starts a manager over a file backed index and a local blob backend.
// Content type sniffing is disabled so tests can upload random bytes.
func newTestEnv(t *testing.T, configure ...func(*Config)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.StagingDir = filepath.Join(dir, "staging")
	cfg.MaxChunkSize = 1024
	cfg.AllowedContentTypes = nil
	for _, fn := range configure {
		fn(cfg)
	}

	backend, err := blob.NewLocalBackend(filepath.Join(dir, "objects"))
	require.NoError(t, err)

	env := &testEnv{t: t, dir: dir, config: cfg, clock: newFakeClock(), backend: backend}
	env.mgr = env.start()
	t.Cleanup(func() {
		_ = env.mgr.Shutdown(context.Background())
	})
	return env
}

// start opens the index and builds a manager, as a server process would on boot
func (e *testEnv) start() *SessionManager {
	e.t.Helper()

	database, err := db.NewSqliteDB(db.WithPath(filepath.Join(e.dir, "state.db")), db.WithMaxOpenConns(1))
	require.NoError(e.t, err)

	mgr, err := NewSessionManager(e.config, database, e.backend, WithClock(e.clock.Now))
	require.NoError(e.t, err)
	require.NoError(e.t, mgr.Start(context.Background()))
	return mgr
}

// restart simulates a process restart over the same disk state
func (e *testEnv) restart() {
	e.t.Helper()
	require.NoError(e.t, e.mgr.Shutdown(context.Background()))
	e.mgr = e.start()
}

func (e *testEnv) create(data []byte, name string) *Session {
	e.t.Helper()
	s, err := e.mgr.CreateSession(context.Background(), &CreateSessionParams{
		Fingerprint: digest(data),
		TotalSize:   int64(len(data)),
		Name:        name,
	})
	require.NoError(e.t, err)
	return s
}

func (e *testEnv) send(id string, offset int64, chunk []byte) (int64, error) {
	return e.mgr.SendChunk(context.Background(), &ChunkParams{
		SessionID: id,
		Offset:    offset,
		Checksum:  digest(chunk),
	}, bytes.NewReader(chunk))
}

// sendAll uploads data in chunks of size n starting at offset
func (e *testEnv) sendAll(id string, data []byte, offset int64, n int) {
	e.t.Helper()
	for offset < int64(len(data)) {
		end := min(offset+int64(n), int64(len(data)))
		received, err := e.send(id, offset, data[offset:end])
		require.NoError(e.t, err)
		require.Equal(e.t, end, received)
		offset = end
	}
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}
