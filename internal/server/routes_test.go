package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openmined/songbox/internal/server/upload"
	"github.com/openmined/songbox/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		HTTP:    HTTPConfig{Addr: "127.0.0.1:0"},
		Upload:  *upload.DefaultConfig(),
		DataDir: t.TempDir(),
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	ctx := context.Background()
	svc, err := NewServices(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return SetupRoutes(cfg, svc)
}

func do(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes_IndexAndHealth(t *testing.T) {
	h := newTestRouter(t, newTestConfig(t))

	w := do(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, version.DetailedWithApp(), w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRoutes_NotFoundAndMethod(t *testing.T) {
	h := newTestRouter(t, newTestConfig(t))

	w := do(h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code"`)

	w = do(h, http.MethodDelete, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRoutes_UploadUnderBothPrefixes(t *testing.T) {
	for _, prefix := range []string{"", "/api/v1"} {
		t.Run("prefix="+prefix, func(t *testing.T) {
			h := newTestRouter(t, newTestConfig(t))

			data := []byte("ID3\x03\x00\x00\x00\x00\x00\x00 tiny track")
			sum := sha256.Sum256(data)
			fp := hex.EncodeToString(sum[:])

			w := do(h, http.MethodPost, prefix+"/sessions",
				fmt.Sprintf(`{"fingerprint":%q,"totalSize":%d,"name":"tiny.mp3"}`, fp, len(data)),
				"Content-Type", "application/json")
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			var created struct {
				SessionID string `json:"sessionId"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

			w = do(h, http.MethodPut, fmt.Sprintf("%s/sessions/%s/chunk?offset=0", prefix, created.SessionID),
				string(data), "X-Checksum", "sha256="+fp)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			w = do(h, http.MethodPost, fmt.Sprintf("%s/sessions/%s/complete", prefix, created.SessionID), "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "uploads/"+fp+".mp3")

			w = do(h, http.MethodGet, fmt.Sprintf("%s/sessions/%s", prefix, created.SessionID), "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"complete"`)
			assert.NotContains(t, w.Body.String(), "expiresAt")
		})
	}
}

func TestRoutes_RateLimitsSessionCreation(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.HTTP.RateLimit = "2-M"
	h := newTestRouter(t, cfg)

	codes := make([]int, 0, 3)
	for range 3 {
		w := do(h, http.MethodPost, "/api/v1/sessions", `{}`, "Content-Type", "application/json")
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)

	// status reads are not limited
	w := do(h, http.MethodGet, "/api/v1/sessions/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	cfg := newTestConfig(t)
	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_NewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), &Config{})
	assert.Error(t, err)
}
