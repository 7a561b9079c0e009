package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ferrolab/certline/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyTransitionActor = "transition:actor:%s"

// TransitionLimiter throttles the status-transition endpoint per actor. A nil
// limiter (rate limiting disabled) allows everything.
type TransitionLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewTransitionLimiter(cfg config.Config) (*TransitionLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.TransitionRate <= 0 || limitCfg.TransitionBurst <= 0 {
		return nil, errors.New("transition rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &TransitionLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.TransitionRate,
		burst:   limitCfg.TransitionBurst,
	}, nil
}

func (l *TransitionLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *TransitionLimiter) AllowActor(ctx context.Context, actorID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyTransitionActor, strings.TrimSpace(actorID))
	result, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		// Redis being down must not freeze the workflow; fail open.
		return &Result{Allowed: true}, nil
	}
	return result, nil
}
