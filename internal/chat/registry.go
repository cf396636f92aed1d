package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry holds in-memory sessions keyed by visitor session id.
// Conversations are never persisted; idle sessions are dropped by Run.
type Registry struct {
	completer Completer
	opts      []SessionOption
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry

	inflight sync.WaitGroup
}

type entry struct {
	session  *Session
	lastUsed time.Time
}

// NewRegistry creates a Registry. Sessions idle longer than ttl are pruned;
// ttl <= 0 disables pruning.
func NewRegistry(completer Completer, ttl time.Duration, opts ...SessionOption) *Registry {
	return &Registry{
		completer: completer,
		opts:      opts,
		ttl:       ttl,
		now:       time.Now,
		logger:    slog.Default(),
		sessions:  make(map[string]*entry),
	}
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		e = &entry{session: NewSession(id, r.completer, r.opts...)}
		r.sessions[id] = e
	}
	e.lastUsed = r.now()
	return e.session
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Prune() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Background waits on x in a new goroutine, so the caller can return
// while the placeholder shows. The exchange is bounded by timeout, not by
// the caller's context; timeout <= 0 leaves it to the completer.
func (r *Registry) Background(x *Exchange, timeout time.Duration) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		outcome := x.Wait(ctx)
		r.logger.Debug("background chat exchange finished", "session", x.s.id, "outcome", outcome)
	}()
}

// Wait blocks until every exchange started with Background has finished.
func (r *Registry) Wait() {
	r.inflight.Wait()
}

// Run prunes idle sessions every interval until ctx is cancelled.
// If interval is <= 0, it defaults to one minute.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(); n > 0 {
				r.logger.Debug("pruned idle chat sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}
