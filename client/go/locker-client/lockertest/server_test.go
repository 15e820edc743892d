package lockertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

type response struct {
	LockID string         `json:"lock_id"`
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

func newTestHandler() (*Handler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewHandler(Options{Now: clock.Now}), clock
}

func do(t *testing.T, h http.Handler, method, path string, body any) (int, response) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.SetBasicAuth(DefaultUsername, DefaultPassword)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestAcquire(t *testing.T) {
	h, _ := newTestHandler()

	code, resp := do(t, h, http.MethodPost, "/locks/jobs.json", map[string]any{"ttl": 30, "message": "nightly"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "jobs", resp.LockID)
	assert.Equal(t, "ok", resp.Status)
	assert.EqualValues(t, 30, resp.Data["ttl"])
	assert.EqualValues(t, 30, resp.Data["timeout"])
	assert.Equal(t, "nightly", resp.Data["message"])
	assert.True(t, strings.HasPrefix(resp.Data["uuid"].(string), "jobs-"))
	assert.Equal(t, resp.Data["uuid"], h.Token("jobs"))

	code, resp = do(t, h, http.MethodPost, "/locks/jobs.json", map[string]any{"ttl": 30})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "error", resp.Status)
}

func TestAcquire_InvalidTTL(t *testing.T) {
	h, _ := newTestHandler()

	code, _ := do(t, h, http.MethodPost, "/locks/jobs.json", map[string]any{"ttl": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, h.Token("jobs"))
}

func TestAcquire_AfterExpiry(t *testing.T) {
	h, clock := newTestHandler()
	first := h.Hold("jobs", 5*time.Second)

	code, _ := do(t, h, http.MethodPost, "/locks/jobs.json", map[string]any{"ttl": 10})
	require.Equal(t, http.StatusConflict, code)

	clock.Advance(5 * time.Second)

	code, resp := do(t, h, http.MethodPost, "/locks/jobs.json", map[string]any{"ttl": 10})
	require.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, first, resp.Data["uuid"])
}

func TestGet(t *testing.T) {
	h, clock := newTestHandler()

	code, resp := do(t, h, http.MethodGet, "/locks/jobs.json", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Lock 'jobs' not found.", resp.Data["message"])

	token := h.Hold("jobs", 10*time.Second)
	clock.Advance(4 * time.Second)

	code, resp = do(t, h, http.MethodGet, "/locks/jobs.json", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, token, resp.Data["uuid"])
	assert.EqualValues(t, 6, resp.Data["timeout"])
}

func TestRenew(t *testing.T) {
	h, clock := newTestHandler()
	token := h.Hold("jobs", 10*time.Second)

	code, resp := do(t, h, http.MethodPut, "/locks/jobs.json", map[string]any{"uuid": "wrong", "ttl": 20})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Lock UUID mismatch.", resp.Data["message"])

	clock.Advance(8 * time.Second)
	code, resp = do(t, h, http.MethodPut, "/locks/jobs.json", map[string]any{"uuid": token, "ttl": 20})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 20, resp.Data["ttl"])
	assert.EqualValues(t, 20, resp.Data["timeout"])

	clock.Advance(15 * time.Second)
	assert.Equal(t, token, h.Token("jobs"))
}

func TestRenew_Expired(t *testing.T) {
	h, clock := newTestHandler()
	token := h.Hold("jobs", time.Second)
	clock.Advance(time.Second)

	code, _ := do(t, h, http.MethodPut, "/locks/jobs.json", map[string]any{"uuid": token, "ttl": 20})
	assert.Equal(t, http.StatusConflict, code)
}

func TestRelease(t *testing.T) {
	tests := []struct {
		name     string
		body     func(token string) map[string]any
		expected int
		released bool
	}{
		{"owner", func(token string) map[string]any { return map[string]any{"uuid": token, "force": false} }, http.StatusOK, true},
		{"wrong token", func(string) map[string]any { return map[string]any{"uuid": "nope", "force": false} }, http.StatusConflict, false},
		{"null token", func(string) map[string]any { return map[string]any{"uuid": nil, "force": false} }, http.StatusConflict, false},
		{"forced", func(string) map[string]any { return map[string]any{"uuid": nil, "force": true} }, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler()
			token := h.Hold("jobs", time.Minute)

			code, _ := do(t, h, http.MethodDelete, "/locks/jobs.json", tt.body(token))
			assert.Equal(t, tt.expected, code)
			if tt.released {
				assert.Empty(t, h.Token("jobs"))
			} else {
				assert.Equal(t, token, h.Token("jobs"))
			}
		})
	}
}

func TestRelease_NotHeld(t *testing.T) {
	h, _ := newTestHandler()

	code, resp := do(t, h, http.MethodDelete, "/locks/jobs.json", map[string]any{"uuid": nil, "force": true})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Lock UUID mismatch or Lock not found.", resp.Data["message"])
}

func TestBasicAuth(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/locks/jobs.json", nil)
	req.SetBasicAuth(DefaultUsername, "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, h.Requests(http.MethodGet))
}

func TestUnknownResource(t *testing.T) {
	h, _ := newTestHandler()

	code, _ := do(t, h, http.MethodGet, "/locks/jobs", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEscapedLockID(t *testing.T) {
	h, _ := newTestHandler()

	code, resp := do(t, h, http.MethodPost, "/locks/team%2Fjobs.json", map[string]any{"ttl": 30})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "team/jobs", resp.LockID)
	assert.Equal(t, resp.Data["uuid"], h.Token("team/jobs"))

	code, resp = do(t, h, http.MethodGet, "/locks/team%2Fjobs.json", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, h.Token("team/jobs"), resp.Data["uuid"])

	req := httptest.NewRequest(http.MethodGet, "/locks/team/jobs.json", nil)
	req.SetBasicAuth(DefaultUsername, DefaultPassword)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInject(t *testing.T) {
	h, _ := newTestHandler()
	h.Inject(http.StatusServiceUnavailable, 2)

	for i := 0; i < 2; i++ {
		code, _ := do(t, h, http.MethodPost, "/locks/jobs.json", map[string]any{"ttl": 30})
		assert.Equal(t, http.StatusServiceUnavailable, code)
	}
	code, _ := do(t, h, http.MethodPost, "/locks/jobs.json", map[string]any{"ttl": 30})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, h.Requests(http.MethodPost))
}

func TestMetrics(t *testing.T) {
	h, _ := newTestHandler()

	do(t, h, http.MethodPost, "/locks/a.json", map[string]any{"ttl": 30})
	do(t, h, http.MethodPost, "/locks/a.json", map[string]any{"ttl": 30})
	do(t, h, http.MethodPost, "/locks/b.json", map[string]any{"ttl": 30})

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.acquireTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.acquireTotal.WithLabelValues("held")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.locksHeld))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lock_acquire_total")
}
