package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/kalambet/glowkit/internal/chat"
)

// requestLogger logs one line per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

const limiterIdle = 10 * time.Minute

// sessionLimiter rate-limits chat requests per visitor session.
type sessionLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// newSessionLimiter allows perMinute chat requests per session, all of which
// may arrive at once. perMinute <= 0 disables limiting.
func newSessionLimiter(perMinute int) *sessionLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &sessionLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

func (l *sessionLimiter) allow(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdle {
		for id, e := range l.limiters {
			if now.Sub(e.seen) > limiterIdle {
				delete(l.limiters, id)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[sessionID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[sessionID] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (l *sessionLimiter) middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(SessionID(r)) {
			slog.Warn("chat rate limit exceeded", "session", SessionID(r))
			httpError(w, http.StatusTooManyRequests, "rate_limit_error", "too many chat requests, try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// formMiddleware is middleware for the HTML forms. A denied post shows a
// bot bubble and redirects back to the page instead of answering in JSON.
func (l *sessionLimiter) formMiddleware(chats *chat.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := SessionID(r)
			if l.allow(sid) {
				next.ServeHTTP(w, r)
				return
			}
			crit, ok := parseFilterForm(w, r)
			if !ok {
				return
			}
			slog.Warn("chat rate limit exceeded", "session", sid)
			chats.Get(sid).Notify(chat.RateLimitedText)
			http.Redirect(w, r, indexURL(crit, ""), http.StatusSeeOther)
		})
	}
}
