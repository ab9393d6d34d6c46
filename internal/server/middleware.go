package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// maxBytesHandler caps request body sizes. Requests that declare a larger
// Content-Length are rejected up front; chunked bodies are capped while
// being read.
func maxBytesHandler(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > limit {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a fixed-window per-client-IP request limit.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*clientWindow
}

type clientWindow struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*clientWindow),
	}
}

// allow counts a request for the client and reports whether it fits in the
// current window. Stale windows for other clients are pruned as a side
// effect, keeping the map bounded by active clients.
func (rl *rateLimiter) allow(clientIP string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, cw := range rl.windows {
		if now.Sub(cw.start) >= rl.window {
			delete(rl.windows, ip)
		}
	}

	cw, ok := rl.windows[clientIP]
	if !ok {
		rl.windows[clientIP] = &clientWindow{start: now, count: 1}
		return true
	}

	cw.count++
	return cw.count <= rl.limit
}

func (rl *rateLimiter) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r), time.Now()) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the remote host, ignoring the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
