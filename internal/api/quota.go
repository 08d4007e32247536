package api

import (
	"net"
	"net/http"
	"sync"

	"github.com/bull/contextiq/internal/metrics"
)

// SessionHeader identifies a client session for the demo quota.
const SessionHeader = "X-Session-ID"

// Quota limits how many uploads and questions each session may make.
type Quota struct {
	limit int

	mu     sync.Mutex
	counts map[string]int
}

// NewQuota creates a quota. A limit of 0 or less disables it.
func NewQuota(limit int) *Quota {
	return &Quota{limit: limit, counts: make(map[string]int)}
}

// Allow records one use for session and reports whether it is within the limit.
func (q *Quota) Allow(session string) bool {
	if q.limit <= 0 {
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.counts[session] >= q.limit {
		return false
	}
	q.counts[session]++
	return true
}

// Used returns how many requests session has made.
func (q *Quota) Used(session string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[session]
}

// Middleware rejects requests over the limit with 429.
func (q *Quota) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !q.Allow(sessionKey(r)) {
			metrics.QuotaRejectionsTotal.Inc()
			writeError(w, http.StatusTooManyRequests, "demo_limit_reached", "Demo limit reached")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionKey is the session header, falling back to the client address.
func sessionKey(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
