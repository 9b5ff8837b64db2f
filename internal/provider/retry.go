package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryPolicy governs idempotent status checks. Submissions never retry.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts: defaultRetryAttempts,
		baseDelay:   defaultRetryBaseDelay,
		maxDelay:    defaultRetryMaxDelay,
	}
}

func (r retryPolicy) attempts() int {
	return max(r.maxAttempts, 1)
}

// next reports whether err is transient and how long to wait before the
// following attempt. 408, 429 and 5xx responses and network timeouts are
// transient; Retry-After wins over the computed backoff.
func (r retryPolicy) next(err error, attempt int) (time.Duration, bool) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		if code != http.StatusRequestTimeout && code != http.StatusTooManyRequests && code < http.StatusInternalServerError {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return r.clamp(statusErr.RetryAfter), true
		}
		return r.backoff(attempt), true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return r.backoff(attempt), true
	}
	return 0, false
}

// backoff doubles baseDelay per attempt, capped at maxDelay.
func (r retryPolicy) backoff(attempt int) time.Duration {
	if r.baseDelay <= 0 {
		return 0
	}
	delay := r.baseDelay
	for i := 1; i < attempt && delay < r.ceiling(); i++ {
		delay *= 2
	}
	return r.clamp(delay)
}

func (r retryPolicy) ceiling() time.Duration {
	if r.maxDelay > 0 {
		return r.maxDelay
	}
	return defaultRetryMaxDelay
}

func (r retryPolicy) clamp(delay time.Duration) time.Duration {
	return min(max(delay, 0), r.ceiling())
}

func (r retryPolicy) wait(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil || delay <= 0 {
		return err
	}
	if r.sleep != nil {
		r.sleep(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, seconds >= 0
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	delay := time.Until(when)
	return delay, delay >= 0
}
