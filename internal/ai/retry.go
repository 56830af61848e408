package ai

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/adreport-cli/internal/logging"
)

// DefaultBackoff is the wait before each retry: five retries, six attempts,
// 31 seconds of waiting in the worst case.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retrying wraps a Runtime with a fixed backoff schedule. Every failure is
// retried except a missing key, an empty 200 reply and context cancellation. After the last
// delay the next failure is returned as is.
type Retrying struct {
	Runtime Runtime
	Backoff []time.Duration
	Sleep   SleepFunc
	Logger  *zap.Logger
}

// NewRetrying wraps rt with backoff. An empty backoff uses DefaultBackoff.
func NewRetrying(rt Runtime, backoff []time.Duration, logger *zap.Logger) *Retrying {
	if len(backoff) == 0 {
		backoff = DefaultBackoff
	}
	return &Retrying{Runtime: rt, Backoff: backoff, Sleep: sleepCtx, Logger: logging.OrNop(logger)}
}

func (r *Retrying) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	logger := logging.OrNop(r.Logger)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := r.Runtime.Generate(ctx, req)
		if err == nil {
			if attempt > 0 {
				logger.Info("generation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return resp, nil
		}
		if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrEmptyResponse) || ctx.Err() != nil {
			return nil, err
		}
		if attempt >= len(r.Backoff) {
			logger.Warn("generation failed, giving up", zap.Int("attempts", attempt+1), zap.Error(err))
			return nil, err
		}
		wait := r.Backoff[attempt]
		logger.Debug("generation failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// BackoffFromMillis converts a config list of milliseconds.
func BackoffFromMillis(ms []int) []time.Duration {
	out := make([]time.Duration, 0, len(ms))
	for _, m := range ms {
		if m < 0 {
			m = 0
		}
		out = append(out, time.Duration(m)*time.Millisecond)
	}
	return out
}
