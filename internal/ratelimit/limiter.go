package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config contains the two fixed-window budgets guarding message sends.
type Config struct {
	ActorLimit         int           // max sends per actor per window, all conversations
	ActorWindow        time.Duration // actor window length
	ConversationLimit  int           // max sends per (actor, conversation) per window
	ConversationWindow time.Duration // conversation window length
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ActorLimit:         120,
		ActorWindow:        time.Minute,
		ConversationLimit:  30,
		ConversationWindow: time.Minute,
	}
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int           // remaining sends in the tighter window
	RetryAfter time.Duration // time until the blocking window resets
	Limit      int           // limit of the blocking (or tighter) window
}

// Limiter admits or rejects message sends. A send consumes budget only
// when both windows admit it, and the increment-and-check is atomic so
// concurrent callers cannot overshoot the budget.
type Limiter interface {
	AllowSend(ctx context.Context, actorKey, conversationKey string) (Decision, error)
}

type window struct {
	count int
	start time.Time
}

// MemoryLimiter is the in-process fixed-window implementation and the
// default Governor. Swap in the Redis limiter when multiple instances
// share the budget.
type MemoryLimiter struct {
	config    Config
	mu        sync.Mutex
	actors    map[string]*window
	convs     map[string]*window
	nowFunc   func() time.Time
	nextSweep time.Time
}

func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		actors:  make(map[string]*window),
		convs:   make(map[string]*window),
		nowFunc: time.Now,
	}
}

func (l *MemoryLimiter) AllowSend(ctx context.Context, actorKey, conversationKey string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if !now.Before(l.nextSweep) {
		l.sweep(now)
	}
	aw := currentWindow(l.actors, actorKey, now, l.config.ActorWindow)
	cw := currentWindow(l.convs, conversationKey, now, l.config.ConversationWindow)

	if aw.count >= l.config.ActorLimit {
		return Decision{
			Allowed:    false,
			RetryAfter: retryAfter(aw, now, l.config.ActorWindow),
			Limit:      l.config.ActorLimit,
		}, nil
	}
	if cw.count >= l.config.ConversationLimit {
		return Decision{
			Allowed:    false,
			RetryAfter: retryAfter(cw, now, l.config.ConversationWindow),
			Limit:      l.config.ConversationLimit,
		}, nil
	}

	aw.count++
	cw.count++

	remaining := l.config.ConversationLimit - cw.count
	limit := l.config.ConversationLimit
	if ar := l.config.ActorLimit - aw.count; ar < remaining {
		remaining = ar
		limit = l.config.ActorLimit
	}
	return Decision{Allowed: true, Remaining: remaining, Limit: limit}, nil
}

// sweep drops expired windows so the maps don't grow with every actor
// and conversation key ever seen. Must run under l.mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, w := range l.actors {
		if now.Sub(w.start) >= l.config.ActorWindow {
			delete(l.actors, key)
		}
	}
	for key, w := range l.convs {
		if now.Sub(w.start) >= l.config.ConversationWindow {
			delete(l.convs, key)
		}
	}

	interval := l.config.ActorWindow
	if l.config.ConversationWindow > interval {
		interval = l.config.ConversationWindow
	}
	l.nextSweep = now.Add(interval)
}

func currentWindow(m map[string]*window, key string, now time.Time, length time.Duration) *window {
	w, ok := m[key]
	if !ok || now.Sub(w.start) >= length {
		w = &window{start: now}
		m[key] = w
	}
	return w
}

func retryAfter(w *window, now time.Time, length time.Duration) time.Duration {
	d := w.start.Add(length).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
