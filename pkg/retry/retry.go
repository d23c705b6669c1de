package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetries   = 3
	DefaultBaseDelay = 500 * time.Millisecond
	DefaultTimeout   = 15 * time.Second
	DefaultJitterMin = 0.8
	DefaultJitterMax = 1.3
	DefaultMaxDelay  = 30 * time.Second
)

// Options configures one retry sequence. Immutable per call.
type Options struct {
	Retries   int           // total attempts, min 1
	BaseDelay time.Duration // first backoff step
	Timeout   time.Duration // per-attempt bound
	JitterMin float64
	JitterMax float64
	MaxDelay  time.Duration // backoff cap
}

// DefaultOptions returns the process-wide defaults. Callers override fields
// per call; configuration feeds these through config.RetryOptions.
func DefaultOptions() Options {
	return Options{
		Retries:   DefaultRetries,
		BaseDelay: DefaultBaseDelay,
		Timeout:   DefaultTimeout,
		JitterMin: DefaultJitterMin,
		JitterMax: DefaultJitterMax,
		MaxDelay:  DefaultMaxDelay,
	}
}

// WithRetries is the named constructor for the common "just give me N
// attempts" case.
func WithRetries(n int) Options {
	o := DefaultOptions()
	o.Retries = n
	return o
}

func (o Options) normalized() Options {
	if o.Retries < 1 {
		o.Retries = 1
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.JitterMin <= 0 {
		o.JitterMin = DefaultJitterMin
	}
	if o.JitterMax < o.JitterMin {
		o.JitterMax = o.JitterMin
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	return o
}

// Delay computes the backoff before attempt+1:
// min(MaxDelay, BaseDelay * 2^(attempt-1) * uniform(JitterMin, JitterMax)).
func (o Options) Delay(attempt int) time.Duration {
	o = o.normalized()
	jitter := o.JitterMin + rand.Float64()*(o.JitterMax-o.JitterMin)
	d := time.Duration(float64(o.BaseDelay) * math.Pow(2, float64(attempt-1)) * jitter)
	if d > o.MaxDelay {
		d = o.MaxDelay
	}
	return d
}

// Do runs op up to opts.Retries times. Each attempt gets its own
// context bounded by opts.Timeout; a timed-out attempt is a transport
// failure like any other and goes through the same classification. A
// non-retryable error, or the error of the last attempt, is returned
// unmodified so callers can inspect it with errors.As.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		v, err := op(attemptCtx)
		cancel()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == opts.Retries || !Retryable(err) {
			return zero, err
		}

		select {
		case <-time.After(opts.Delay(attempt)):
		case <-ctx.Done():
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// Operation matches cenkalti/backoff's operation shape.
type Operation func() error

type ExponentialConfig struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	OnRetry         func(error, time.Duration)
}

// Exponential retries fn with full exponential backoff until MaxElapsedTime.
// Used for infrastructure connects (NATS) where elapsed-time bounding fits
// better than the classified, attempt-counted Do.
func Exponential(fn Operation, cfg ExponentialConfig) error {
	if cfg.InitialInterval <= 0 {
		return errors.New("initial interval must be > 0")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	if cfg.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = cfg.MaxElapsedTime
	}

	return backoff.RetryNotify(backoff.Operation(fn), bo, func(err error, next time.Duration) {
		if cfg.OnRetry != nil {
			cfg.OnRetry(err, next)
		}
	})
}
