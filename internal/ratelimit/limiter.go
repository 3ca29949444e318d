package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/guarzo/resellgap/internal/config"
)

// Limiter is a token bucket shared by every request to one provider.
type Limiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	mu         sync.Mutex
	lastRefill time.Time
}

// NewLimiter creates a bucket holding maxTokens that gains one token every
// refillRate.
func NewLimiter(maxTokens int, refillRate time.Duration) *Limiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	if refillRate <= 0 {
		refillRate = time.Millisecond
	}
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// PerMinute creates a limiter allowing perMinute requests per minute with a
// burst of burst. A non-positive perMinute yields nil, which never blocks.
func PerMinute(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	return NewLimiter(burst, time.Minute/time.Duration(perMinute))
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillTokens()
	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for !l.Allow() {
		t := time.NewTimer(l.pollInterval())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// WaitWithTimeout waits at most timeout for a token.
func (l *Limiter) WaitWithTimeout(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Wait(ctx) == nil
}

// TokensAvailable returns the current number of tokens.
func (l *Limiter) TokensAvailable() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillTokens()
	return l.tokens
}

func (l *Limiter) pollInterval() time.Duration {
	d := l.refillRate / time.Duration(l.maxTokens)
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// refillTokens must be called with mu held.
func (l *Limiter) refillTokens() {
	now := time.Now()
	add := int(now.Sub(l.lastRefill) / l.refillRate)
	if add > 0 {
		l.tokens = min(l.maxTokens, l.tokens+add)
		l.lastRefill = l.lastRefill.Add(time.Duration(add) * l.refillRate)
	}
}

// Providers holds one limiter per price provider.
type Providers struct {
	Keepa     *Limiter
	WebSearch *Limiter
}

// NewProviders builds the provider limiters from configuration.
func NewProviders(cfg config.Config) *Providers {
	return &Providers{
		Keepa:     PerMinute(cfg.Keepa.RatePerMinute, 5),
		WebSearch: PerMinute(cfg.WebSearch.RatePerMinute, 3),
	}
}
