// Package ratelimit paces catalog API calls with a token bucket.
// Every client sharing a limiter also shares its 429 cooldown, so one
// throttled page request slows the whole hydration rather than only itself.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/logging"
)

// RateLimiter implements a token bucket rate limiter.
// It allows bursts up to burst tokens, then refills at rate tokens/second.
// A cooldown set after a 429 response blocks every waiter until it expires.
type RateLimiter struct {
	mu sync.Mutex

	tokens        float64
	burst         float64
	rate          float64 // tokens per second
	lastRefill    time.Time
	cooldownUntil time.Time

	lastWarn time.Time
	logger   *logging.Logger
}

// NewRateLimiter creates a limiter that starts with a full bucket.
// A non-positive rate falls back to constants.DefaultRequestsPerSecond and a
// burst below one is raised to one so Wait can always make progress.
func NewRateLimiter(rate float64, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = constants.DefaultRequestsPerSecond
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		tokens:     burst,
		burst:      burst,
		rate:       rate,
		lastRefill: time.Now(),
		logger:     logging.NewNopLogger(),
	}
}

// SetLogger routes long-wait warnings to logger.
func (rl *RateLimiter) SetLogger(logger *logging.Logger) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if logger != nil {
		rl.logger = logger
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	warned := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, ok := rl.reserve()
		if ok {
			if waited := time.Since(start); waited > 5*time.Second {
				rl.logger.Info().Dur("waited", waited).Msg("Catalog API capacity available again")
			}
			return nil
		}

		if !warned && wait > 2*time.Second {
			rl.warn(wait)
			warned = true
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// warn logs a long wait at most every 10 seconds per limiter.
func (rl *RateLimiter) warn(wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastWarn) < 10*time.Second {
		return
	}
	rl.lastWarn = time.Now()
	rl.logger.Warn().Dur("wait", wait).Msg("Rate limited, waiting for catalog API capacity")
}

// TryAcquire takes one token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	_, ok := rl.reserve()
	return ok
}

// reserve takes a token if one is available. Otherwise it returns how long
// until the next attempt could succeed.
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.refillLocked(now)

	if cd := rl.cooldownUntil.Sub(now); cd > 0 {
		return cd, false
	}
	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}

	wait := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait, false
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastRefill = now
}

// SetCooldown blocks all waiters for d. A shorter cooldown never replaces a longer one.
func (rl *RateLimiter) SetCooldown(d time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if until := time.Now().Add(d); until.After(rl.cooldownUntil) {
		rl.cooldownUntil = until
	}
}

// CooldownRemaining returns how long the current cooldown still lasts.
func (rl *RateLimiter) CooldownRemaining() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if d := time.Until(rl.cooldownUntil); d > 0 {
		return d
	}
	return 0
}

// Tokens returns the tokens currently available, refill included.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(time.Now())
	return rl.tokens
}
