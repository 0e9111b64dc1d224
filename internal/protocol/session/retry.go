package session

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// RetryPolicy is the caller-side policy for re-attempting Open. Only
// transport failures are retried; parameter and negotiation errors are not.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffConfig
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// OpenWithRetry calls s.Open until it succeeds, fails with a non-transport
// error, attempts run out or ctx is done.
func OpenWithRetry(ctx context.Context, s *Session, policy RetryPolicy, rng *rand.Rand) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = s.Open(ctx)
		if err == nil || !errors.Is(err, protocol.ErrTransport) || attempt >= attempts {
			return err
		}
		delay := NextBackoffDelay(policy.Backoff, attempt, rng)
		log.Warn().Str("component", "session").Int("attempt", attempt).Dur("delay", delay).Err(err).Msg("open failed, retrying")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
