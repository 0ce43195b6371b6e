package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests a client may make per Window.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientKey.
	KeyFunc func(*http.Request) string
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// window counts requests of one client in the current and the previous
// fixed window. The previous count is weighted by its overlap with the
// sliding window ending now.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max  float64
	size time.Duration

	mu      sync.Mutex
	clients map[string]*window
}

// take records one request for key at now unless the client is over the
// limit. It returns the remaining budget and when the current window ends.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	win, found := l.clients[key]
	if !found {
		win = &window{start: now.Truncate(l.size)}
		l.clients[key] = win
	}

	switch elapsed := now.Sub(win.start); {
	case elapsed >= 2*l.size:
		win.start, win.prev, win.curr = now.Truncate(l.size), 0, 0
	case elapsed >= l.size:
		win.start, win.prev, win.curr = win.start.Add(l.size), win.curr, 0
	}

	overlap := 1 - float64(now.Sub(win.start))/float64(l.size)
	used := win.prev*max(overlap, 0) + win.curr
	reset = win.start.Add(l.size)
	if used >= l.max {
		return 0, reset, false
	}

	win.curr++
	return max(int(l.max-used-1), 0), reset, true
}

// evict drops clients idle for at least two windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, win := range l.clients {
		if now.Sub(win.start) >= 2*l.size {
			delete(l.clients, key)
		}
	}
}

// RateLimit enforces a per-client sliding window limit and answers 429 with
// the API error body once it is exceeded. Every response carries the
// X-RateLimit-* headers. Idle clients are evicted in the background until
// ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &limiter{
		max:     float64(cfg.Max),
		size:    cfg.Window,
		clients: make(map[string]*window),
	}
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.evict(cfg.Now())
			}
		}
	}()

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyFunc(r)
			now := cfg.Now()
			remaining, reset, ok := l.take(key, now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				wait := max(reset.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				zctx.From(r.Context()).Warn("Rate limit exceeded", zap.String("client", key))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies a client by address: the first X-Forwarded-For
// entry, X-Real-IP, or the peer address. Request headers such as api_key
// are not authenticated yet and never select the bucket.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
