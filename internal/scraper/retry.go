package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultJitterMin   = 10 * time.Second
	defaultJitterMax   = 60 * time.Second
	defaultBackoffStep = 10 * time.Second
	defaultTimeoutWait = 60 * time.Second
)

// RetryPolicy describes the robust-mode backoff. Connection failures wait
// random(JitterMin, JitterMax) + Step*attempts; timeouts wait TimeoutWait.
// MaxRetries of 0 retries without limit.
type RetryPolicy struct {
	Robust      bool
	MaxRetries  uint64
	JitterMin   time.Duration
	JitterMax   time.Duration
	Step        time.Duration
	TimeoutWait time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Robust:      true,
		JitterMin:   defaultJitterMin,
		JitterMax:   defaultJitterMax,
		Step:        defaultBackoffStep,
		TimeoutWait: defaultTimeoutWait,
	}
}

// JitterFunc returns a duration in [min, max].
type JitterFunc func(min, max time.Duration) time.Duration

func randomJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Retrier runs an operation under a RetryPolicy.
type Retrier struct {
	policy RetryPolicy
	logger *zap.Logger
	jitter JitterFunc
	timer  backoff.Timer
}

func NewRetrier(policy RetryPolicy, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{policy: policy, logger: logger, jitter: randomJitter}
}

// Do runs op once when the policy is not robust and returns its error as is.
// In robust mode, failures that classify as connection or timeout are retried;
// anything else is returned immediately.
func (r *Retrier) Do(ctx context.Context, what string, op func(ctx context.Context) error, classify func(error) FailureClass) error {
	if !r.policy.Robust {
		return op(ctx)
	}

	b := &transientBackOff{policy: r.policy, jitter: r.jitter}
	var bo backoff.BackOff = b
	if r.policy.MaxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, r.policy.MaxRetries)
	}
	bo = backoff.WithContext(bo, ctx)

	attempts := 0
	lastClass := FailureFatal
	err := backoff.RetryNotifyWithTimer(func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastClass = classify(err)
		b.last = lastClass
		if lastClass == FailureFatal {
			return backoff.Permanent(err)
		}
		return err
	}, bo, func(err error, wait time.Duration) {
		r.logger.Warn("transient failure, waiting before retry",
			zap.String("target", what),
			zap.String("class", b.last.String()),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}, r.timer)

	if err == nil || lastClass == FailureFatal {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(err, ctxErr) {
			return err
		}
		return fmt.Errorf("%s: %w: %w", what, ctxErr, err)
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", what, ErrExhaustedRetries, attempts, err)
}

// transientBackOff picks the wait from the class of the last failure. The
// connection-class attempt counter grows for the whole Do call.
type transientBackOff struct {
	policy   RetryPolicy
	jitter   JitterFunc
	attempts int
	last     FailureClass
}

func (b *transientBackOff) NextBackOff() time.Duration {
	if b.last == FailureTimeout {
		return b.policy.TimeoutWait
	}
	b.attempts++
	return b.jitter(b.policy.JitterMin, b.policy.JitterMax) + time.Duration(b.attempts)*b.policy.Step
}

func (b *transientBackOff) Reset() {
	b.attempts = 0
	b.last = FailureFatal
}
