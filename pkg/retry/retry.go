// Package retry provides an explicit retry combinator. Every call site picks
// its own Policy: a bounded number of attempts or unlimited attempts, with a
// constant or exponential backoff between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/twitter-reader/pkg/logging"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_retries_total",
		Help: "Total number of retry attempts by operation",
	}, []string{"operation"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitter_reader_retry_backoff_seconds",
		Help:    "Backoff duration before a retry by operation",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"operation"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by operation",
	}, []string{"operation"})
)

// ErrExhausted is wrapped around the last error when a bounded policy runs out
// of attempts.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first one.
	// Zero means retry until success, a permanent error or context cancellation.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// Multiplier grows the wait after each retry. 1 keeps it constant.
	Multiplier float64

	// Jitter is the randomization factor applied to each wait (0.2 = ±20%).
	Jitter float64
}

// DefaultPolicy returns a bounded exponential policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

// Forever returns an unbounded policy that waits exactly interval between
// attempts.
func Forever(interval time.Duration) Policy {
	return Policy{
		InitialBackoff: interval,
		MaxBackoff:     interval,
		Multiplier:     1,
	}
}

// Unlimited reports whether the policy never gives up on its own.
func (p Policy) Unlimited() bool {
	return p.MaxAttempts <= 0
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	eb.MaxInterval = p.MaxBackoff
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = p.Jitter
	eb.MaxElapsedTime = 0
	if eb.Multiplier < 1 {
		eb.Multiplier = 1
	}
	if eb.MaxInterval < eb.InitialInterval {
		eb.MaxInterval = eb.InitialInterval
	}
	eb.Reset()

	var b backoff.BackOff = eb
	if !p.Unlimited() {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Permanent wraps err so that Do returns it immediately without retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// loggerFrom returns the logger attached to ctx with zerolog's WithContext,
// or a "retry" component logger when ctx carries none.
func loggerFrom(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return logging.NewLogger("retry")
}

// Do calls fn until it succeeds, returns a Permanent error, the policy runs
// out of attempts or ctx is done. operation labels logs and metrics. Logs go
// to the logger carried by ctx, so callers keep their component and client
// fields on retry messages.
func Do(ctx context.Context, operation string, p Policy, fn func() error) error {
	logger := loggerFrom(ctx)
	attempts := 0
	stopped := false
	op := func() error {
		attempts++
		err := fn()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			stopped = true
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(operation).Inc()
		retryBackoffSeconds.WithLabelValues(operation).Observe(wait.Seconds())
		logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("Retrying after backoff")
	}

	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	if err == nil {
		if attempts > 1 {
			logger.Info().
				Str("operation", operation).
				Int("attempt", attempts).
				Msg("Operation succeeded after retry")
		}
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", operation, ctxErr)
	}

	if stopped {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		return err
	}

	if !p.Unlimited() && attempts >= p.MaxAttempts {
		retryExhaustedTotal.WithLabelValues(operation).Inc()
		logger.Warn().
			Str("operation", operation).
			Int("max_attempts", p.MaxAttempts).
			Msg("Retry attempts exhausted")
		return fmt.Errorf("%s: %w after %d attempts: %w", operation, ErrExhausted, attempts, err)
	}

	return err
}
