// Package retry implements the pipeline's retry policy (spec §4.6): a
// trait `getRetryWaitTime(error, attempt) -> RetryStatus` with three
// built-in variants (NoRetry, Exponential, Jitter) plus the classification
// rules that decide whether a given failure is retryable at all.
//
// Grounded on the teacher's transport-level retry loop, generalized from a
// fixed HTTP-status allowlist to the spec's broader classification
// (Retry-After compliance, 5xx/429, service throttle codes, and
// remote-connection-closed).
package retry

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Status is the outcome of consulting a Policy: either retry after a wait,
// or give up.
type Status struct {
	ShouldRetry bool
	Wait        time.Duration
}

// Retry builds a Status that retries after wait.
func Retry(wait time.Duration) Status { return Status{ShouldRetry: true, Wait: wait} }

// DontRetry is the Status that gives up immediately.
var DontRetry = Status{ShouldRetry: false}

// Outcome describes a single failed attempt as seen by a Policy: the HTTP
// status (0 if the failure never reached the wire), a service error code
// if one was decoded, whether the response carried a Retry-After header
// and what it specified, and whether the transport reports a
// connection-closed condition.
type Outcome struct {
	StatusCode      int
	ErrorCode       string
	RetryAfter      time.Duration
	HasRetryAfter   bool
	ConnectionClosed bool
}

// IsClassifiedRetryable implements the spec §4.6 classification shared by
// Exponential and Jitter: retry iff a Retry-After header was present, the
// HTTP status is in [500,600) or 429, the error code is a known throttle
// code, or the transport reports the remote connection closed.
func (o Outcome) IsClassifiedRetryable(isThrottleCode func(string) bool) bool {
	if o.HasRetryAfter {
		return true
	}
	if o.StatusCode == http.StatusTooManyRequests || (o.StatusCode >= 500 && o.StatusCode < 600) {
		return true
	}
	if o.ErrorCode != "" && isThrottleCode != nil && isThrottleCode(o.ErrorCode) {
		return true
	}
	if o.ConnectionClosed {
		return true
	}
	return false
}

// Policy is the `getRetryWaitTime(error, attempt) -> RetryStatus` trait.
type Policy interface {
	// WaitTime decides whether to retry after the failed attempt (0-indexed:
	// 0 is the first, un-retried attempt) and, if so, after how long.
	WaitTime(outcome Outcome, attempt int, isThrottleCode func(string) bool) Status
}

// NoRetry is the Policy that always gives up.
type NoRetry struct{}

func (NoRetry) WaitTime(Outcome, int, func(string) bool) Status { return DontRetry }

// Exponential implements `base * 2^attempt`, capped by maxRetries.
type Exponential struct {
	Base       time.Duration
	MaxRetries int
}

func (p Exponential) WaitTime(o Outcome, attempt int, isThrottleCode func(string) bool) Status {
	if attempt >= p.MaxRetries || !o.IsClassifiedRetryable(isThrottleCode) {
		return DontRetry
	}
	if o.HasRetryAfter {
		return Retry(o.RetryAfter)
	}
	wait := p.Base * time.Duration(1<<uint(attempt))
	return Retry(wait)
}

// Jitter implements random in [base*2^attempt/2, base*2^attempt), smoothing
// thundering herds across concurrently retrying clients.
type Jitter struct {
	Base       time.Duration
	MaxRetries int
	Rand       *rand.Rand // optional; defaults to the package-level source
}

func (p Jitter) WaitTime(o Outcome, attempt int, isThrottleCode func(string) bool) Status {
	if attempt >= p.MaxRetries || !o.IsClassifiedRetryable(isThrottleCode) {
		return DontRetry
	}
	if o.HasRetryAfter {
		return Retry(o.RetryAfter)
	}
	full := p.Base * time.Duration(1<<uint(attempt))
	half := full / 2
	span := int64(full - half)
	var jitter int64
	if span > 0 {
		if p.Rand != nil {
			jitter = p.Rand.Int63n(span)
		} else {
			jitter = rand.Int63n(span)
		}
	}
	wait := half + time.Duration(jitter)
	return Retry(wait)
}

// ParseRetryAfter parses a Retry-After header value, which may be either an
// integer number of seconds or an HTTP-date, returning (duration, ok).
func ParseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	d := time.Until(t)
	if d < 0 {
		return 0, true
	}
	return d, true
}
