package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how a failed generation is retried.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when a zero policy is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     8 * time.Second,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Retryable reports whether err is worth another attempt, and the minimum
// wait the server asked for.
func Retryable(err error) (bool, time.Duration) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatus[apiErr.StatusCode], apiErr.RetryAfter
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true, 0
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true, 0
	}
	return false, 0
}

// retryAfterBackOff stretches the next interval to honour Retry-After.
type retryAfterBackOff struct {
	backoff.BackOff
	floor time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next != backoff.Stop && b.floor > next {
		next = b.floor
	}
	b.floor = 0
	return next
}

// retry runs op under policy. onRetry is called before every wait.
func retry(ctx context.Context, policy RetryPolicy, op func(context.Context) (*Result, error), onRetry func(err error, wait time.Duration)) (*Result, uint, error) {
	policy = policy.withDefaults()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval
	b := &retryAfterBackOff{BackOff: exp}

	var attempts uint
	result, err := backoff.Retry(ctx, func() (*Result, error) {
		attempts++
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		ok, wait := Retryable(err)
		if !ok {
			return nil, backoff.Permanent(err)
		}
		b.floor = wait
		return nil, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if onRetry != nil {
				onRetry(err, wait)
			}
		}),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return result, attempts, err
}
