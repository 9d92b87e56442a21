package songsdk

import (
	"context"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openmined/songbox/internal/server"
	"github.com/openmined/songbox/internal/server/upload"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	cfg       *server.Config
	svc       *server.Services
	clock     *fakeClock
	intercept chunkInterceptor
	puts      atomic.Int64
}

// chunkInterceptor may answer the nth chunk PUT itself and report that it did.
// next is the real router.
type chunkInterceptor func(n int64, w http.ResponseWriter, r *http.Request, next http.Handler) bool

type testServerOption func(*testServer)

func withInterceptor(fn chunkInterceptor) testServerOption {
	return func(ts *testServer) {
		ts.intercept = fn
	}
}

func withClock(c *fakeClock) testServerOption {
	return func(ts *testServer) {
		ts.clock = c
	}
}

// newTestServer serves the real router over a temp data dir and counts chunk PUTs
func newTestServer(t *testing.T, opts ...testServerOption) *testServer {
	t.Helper()

	cfg := &server.Config{
		HTTP:    server.HTTPConfig{Addr: server.DefaultAddr},
		Upload:  *upload.DefaultConfig(),
		DataDir: t.TempDir(),
	}
	require.NoError(t, cfg.Validate())

	ts := &testServer{cfg: cfg}
	for _, opt := range opts {
		opt(ts)
	}

	var mgrOpts []upload.Option
	if ts.clock != nil {
		mgrOpts = append(mgrOpts, upload.WithClock(ts.clock.Now))
	}

	ctx := context.Background()
	svc, err := server.NewServices(ctx, cfg, mgrOpts...)
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))
	ts.svc = svc

	routes := server.SetupRoutes(cfg, svc)
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			n := ts.puts.Add(1)
			if ts.intercept != nil && ts.intercept(n, w, r, routes) {
				return
			}
		}
		routes.ServeHTTP(w, r)
	}))

	t.Cleanup(func() {
		ts.Close()
		_ = svc.Shutdown(context.Background())
	})
	return ts
}

// stagedPath is where the server keeps the partial file of a session
func (ts *testServer) stagedPath(sessionID string) string {
	return filepath.Join(ts.cfg.Upload.StagingDir, sessionID+".part")
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
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

func newTestSDK(t *testing.T, ts *testServer) *SongSDK {
	t.Helper()
	sdk, err := New(&Config{BaseURL: ts.URL, RetryWait: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(sdk.Close)
	return sdk
}

func newTestUploader(t *testing.T, sdk *SongSDK, chunkSize int64) *Uploader {
	t.Helper()
	return newTestUploaderWith(t, sdk, UploaderConfig{
		ResumeDir: t.TempDir(),
		ChunkSize: chunkSize,
	})
}

func newTestUploaderWith(t *testing.T, sdk *SongSDK, cfg UploaderConfig) *Uploader {
	t.Helper()
	cfg.RetryWait = 10 * time.Millisecond
	u, err := NewUploader(sdk, cfg)
	require.NoError(t, err)
	return u
}

// readResumeState decodes the resume file the uploader keeps for path
func readResumeState(t *testing.T, u *Uploader, path string) *resumeState {
	t.Helper()
	state, err := readState(u.statePath(path))
	require.NoError(t, err)
	return state
}

// interruptAfter starts an upload of path and cancels it once n bytes are confirmed
func interruptAfter(t *testing.T, u *Uploader, path string, n int64) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := u.Upload(ctx, &UploadParams{
		FilePath: path,
		Callback: func(uploaded, total int64) {
			if uploaded >= n {
				cancel()
			}
		},
	})
	require.ErrorIs(t, err, context.Canceled)
}

// writeSong writes n bytes that sniff as audio/mpeg
func writeSong(t *testing.T, n int) (string, []byte) {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	copy(data, "ID3\x03\x00\x00\x00\x00\x00\x00")

	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}
