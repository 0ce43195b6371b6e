package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newLimited(t *testing.T, max int, clock *fakeClock) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return RateLimit(ctx, RateLimitConfig{Max: max, Window: time.Minute, Now: clock.Now})(okHandler())
}

func hit(h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderAndOverLimit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	h := newLimited(t, 3, clock)

	for i, want := range []string{"2", "1", "0"} {
		w := hit(h, "10.0.0.1:1000", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
	}

	w := hit(h, "10.0.0.1:1000", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_WindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	h := newLimited(t, 2, clock)

	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1", nil).Code)

	// Half way into the next window the two previous requests weigh as one.
	clock.now = clock.now.Add(90 * time.Second)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1", nil).Code)

	// After two idle windows the client starts over.
	clock.now = clock.now.Add(3 * time.Minute)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	h := newLimited(t, 1, clock)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:2", nil).Code)

	// Forwarded clients are keyed by the first hop, not the proxy address.
	xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.9:1", xff).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.8:1", xff).Code)

}

func TestRateLimit_APIKeyDoesNotSelectBucket(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	h := newLimited(t, 2, clock)

	for i, key := range []string{"a", "b", "c", "d"} {
		code := hit(h, "10.0.0.1:1", map[string]string{"api_key": key}).Code
		if i < 2 {
			assert.Equal(t, http.StatusOK, code, key)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, code, "fresh key %s must not reset the budget", key)
		}
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:4444"
	assert.Equal(t, "192.168.1.1", ClientKey(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientKey(req))

	req.Header.Set("api_key", "secret")
	assert.Equal(t, "198.51.100.7", ClientKey(req))
}

func TestLimiter_Evict(t *testing.T) {
	l := &limiter{max: 1, size: time.Minute, clients: map[string]*window{}}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	l.take("a", now)
	l.take("b", now.Add(90*time.Second))
	l.evict(now.Add(150 * time.Second))

	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
}
