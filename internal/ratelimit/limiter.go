// Package ratelimit provides client-side rate limiting for API calls using a
// token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/logging"
)

// RateLimiter implements a token bucket rate limiter.
// It allows bursts up to maxTokens, then refills at refillRate tokens/second.
type RateLimiter struct {
	tokens       float64   // Current number of tokens available
	maxTokens    float64   // Maximum bucket capacity
	refillRate   float64   // Tokens added per second
	lastRefill   time.Time // Last time tokens were refilled
	lastWarnTime time.Time // Last time a long wait was logged
	logger       *logging.Logger
	mu           sync.Mutex
}

// NewRateLimiter creates a new rate limiter that starts with a full bucket.
func NewRateLimiter(tokensPerSecond float64, burstSize float64, logger *logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RateLimiter{
		tokens:     burstSize,
		maxTokens:  burstSize,
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
		logger:     logger,
	}
}

// NewWorkspaceAPIRateLimiter creates the limiter shared by all calls of one
// workspace-management API client. Workspace creation is slow and the API
// throttles per token, so a run rarely needs more than the burst.
func NewWorkspaceAPIRateLimiter(logger *logging.Logger) *RateLimiter {
	return NewRateLimiter(constants.WorkspaceAPIRatePerSec, constants.WorkspaceAPIBurstCapacity, logger)
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.tryAcquire() {
		return nil
	}

	waitTime := rl.timeUntilNextToken()
	if waitTime > 2*time.Second {
		rl.mu.Lock()
		// Only warn every 10 seconds
		if time.Since(rl.lastWarnTime) > 10*time.Second {
			rl.logger.Warn().Dur("wait", waitTime).Msg("Rate limited, waiting for API capacity")
			rl.lastWarnTime = time.Now()
		}
		rl.mu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rl.tryAcquire() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.timeUntilNextToken()):
		}
	}
}

// tryAcquire attempts to acquire one token without blocking.
func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

func (rl *RateLimiter) refill(now time.Time) {
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

// timeUntilNextToken returns how long until at least one token is available.
func (rl *RateLimiter) timeUntilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	tokensNeeded := 1.0 - rl.tokens
	if tokensNeeded <= 0 {
		return 0
	}
	return time.Duration(tokensNeeded / rl.refillRate * float64(time.Second))
}

// GetCurrentTokens returns the current number of tokens.
func (rl *RateLimiter) GetCurrentTokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())
	return rl.tokens
}
