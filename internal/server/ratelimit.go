package server

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// RateLimiter enforces a per-client token bucket. Tokens refill at a
// fixed rate per second up to a burst capacity; each request consumes
// one token.
type RateLimiter struct {
	mu sync.Mutex

	ratePerSec float64
	burst      float64

	buckets map[string]*tokenBucket
	now     func() time.Time
}

type tokenBucket struct {
	tokens   float64
	lastFill time.Time
}

// NewRateLimiter creates a rate limiter admitting ratePerSec requests
// per second per client with the given burst capacity.
func NewRateLimiter(ratePerSec, burst int) *RateLimiter {
	if ratePerSec < 1 {
		ratePerSec = 1
	}
	if burst < 1 {
		burst = ratePerSec
	}
	return &RateLimiter{
		ratePerSec: float64(ratePerSec),
		burst:      float64(burst),
		buckets:    make(map[string]*tokenBucket),
		now:        time.Now,
	}
}

// Allow checks whether a request from the given client is admitted.
// It returns a *RateLimitError when the client's bucket is empty.
func (rl *RateLimiter) Allow(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.getOrCreateBucket(clientID, now)

	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens = math.Min(rl.burst, b.tokens+elapsed*rl.ratePerSec)
	b.lastFill = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / rl.ratePerSec * float64(time.Second))
		return &RateLimitError{
			Type:       "requests_per_second",
			Limit:      int(rl.ratePerSec),
			RetryAfter: wait,
		}
	}

	b.tokens--
	return nil
}

// Tokens reports the remaining token count for a client without
// consuming anything. Intended for tests and usage endpoints.
func (rl *RateLimiter) Tokens(clientID string) float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[clientID]
	if !exists {
		return rl.burst
	}
	elapsed := rl.now().Sub(b.lastFill).Seconds()
	return math.Min(rl.burst, b.tokens+elapsed*rl.ratePerSec)
}

func (rl *RateLimiter) getOrCreateBucket(clientID string, now time.Time) *tokenBucket {
	b, exists := rl.buckets[clientID]
	if !exists {
		b = &tokenBucket{tokens: rl.burst, lastFill: now}
		rl.buckets[clientID] = b
	}
	return b
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // which limit was exceeded
	Limit      int           // requests per second admitted
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}
