package awssdk

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmespath/go-jmespath"

	"github.com/gocloudkit/awssdk-core/internal/awserr"
	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// AcceptorState is the terminal or continuation state a matched Acceptor
// selects (spec §3 WaiterAcceptor, §4.10).
type AcceptorState string

const (
	AcceptorSuccess AcceptorState = "success"
	AcceptorRetry   AcceptorState = "retry"
	AcceptorFailure AcceptorState = "failure"
)

// result is the {success output | thrown error} the spec's waiter loop
// wraps each iteration's outcome in before evaluating acceptors.
type result struct {
	output shape.Values
	err    error
}

// Matcher evaluates one iteration's result, reporting whether it matched
// (spec §4.10 Matchers).
type Matcher interface {
	Match(r result) bool
}

// Acceptor pairs a Matcher with the state it selects when matched.
type Acceptor struct {
	State   AcceptorState
	Matcher Matcher
}

// SuccessMatcher matches any iteration that completed without error.
type SuccessMatcher struct{}

func (SuccessMatcher) Match(r result) bool { return r.err == nil }

// ErrorStatusMatcher matches a failure whose typed AWS error carries the
// given HTTP status code.
type ErrorStatusMatcher struct{ StatusCode int }

func (m ErrorStatusMatcher) Match(r result) bool {
	if r.err == nil {
		return false
	}
	switch e := r.err.(type) {
	case *awserr.ServiceError:
		return e.StatusCode == m.StatusCode
	case *awserr.RawError:
		return e.StatusCode == m.StatusCode
	case *awserr.ServerError:
		return e.StatusCode == m.StatusCode
	case *awserr.ClientHTTPError:
		return e.StatusCode == m.StatusCode
	default:
		return false
	}
}

// ErrorCodeMatcher matches a failure whose typed service error carries
// the given error code.
type ErrorCodeMatcher struct{ Code string }

func (m ErrorCodeMatcher) Match(r result) bool {
	se, ok := r.err.(*awserr.ServiceError)
	return ok && se.Code == m.Code
}

// JMESPathMatcher evaluates a JMESPath expression against the success
// output and compares its (stringified) result to Expected.
type JMESPathMatcher struct {
	Path     string
	Expected string
}

func (m JMESPathMatcher) Match(r result) bool {
	if r.err != nil {
		return false
	}
	v, ok := evalJMESPath(m.Path, r.output)
	if !ok {
		return false
	}
	return stringify(v) == m.Expected
}

// JMESAnyPathMatcher matches when Path yields an array and ANY element
// stringifies to Expected.
type JMESAnyPathMatcher struct {
	Path     string
	Expected string
}

func (m JMESAnyPathMatcher) Match(r result) bool {
	if r.err != nil {
		return false
	}
	v, ok := evalJMESPath(m.Path, r.output)
	if !ok {
		return false
	}
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if stringify(item) == m.Expected {
			return true
		}
	}
	return false
}

// JMESAllPathMatcher matches when Path yields a non-empty array and ALL
// elements stringify to Expected (vacuously false on an empty array, per
// spec §4.10).
type JMESAllPathMatcher struct {
	Path     string
	Expected string
}

func (m JMESAllPathMatcher) Match(r result) bool {
	if r.err != nil {
		return false
	}
	v, ok := evalJMESPath(m.Path, r.output)
	if !ok {
		return false
	}
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return false
	}
	for _, item := range items {
		if stringify(item) != m.Expected {
			return false
		}
	}
	return true
}

func evalJMESPath(path string, output shape.Values) (any, bool) {
	v, err := jmespath.Search(path, map[string]any(output))
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func stringify(v any) string {
	return fmt.Sprintf("%v", v)
}

// WaiterOptions configures delay and timeout behavior (spec §6
// "Waiter.new(acceptors, minDelay, maxDelay, maxAttempts)").
type WaiterOptions struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	MaxWaitTime time.Duration
}

// Waiter polls an operation with an acceptor list until one matches a
// terminal state, the delay strategy is exhausted, or MaxWaitTime elapses
// (spec §4.10).
type Waiter struct {
	acceptors []Acceptor
	opts      WaiterOptions
}

// NewWaiter builds a Waiter (spec §6 "Waiter.new(...)").
func NewWaiter(acceptors []Acceptor, opts WaiterOptions) *Waiter {
	if opts.MinDelay <= 0 {
		opts.MinDelay = time.Second
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 20
	}
	return &Waiter{acceptors: acceptors, opts: opts}
}

// nextDelay implements exponential backoff: the base delay doubles from
// MinDelay each attempt, capped at MaxDelay, and the returned delay is
// jittered into [base/2, base] to avoid synchronized polling across callers.
func (w *Waiter) nextDelay(attempt int) time.Duration {
	d := w.opts.MinDelay << attempt
	if d <= 0 || d > w.opts.MaxDelay {
		d = w.opts.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d/2 + jitter
}

// WaitUntil polls op with input through w until an acceptor declares
// success or failure, maxAttempts is exhausted, or maxWaitTime elapses
// (spec §6 "Client.waitUntil(...)").
func WaitUntil(ctx context.Context, c *Client, op Operation, input shape.Values, w *Waiter) error {
	start := time.Now()

	for attempt := 0; attempt < w.opts.MaxAttempts; attempt++ {
		if w.opts.MaxWaitTime > 0 && time.Since(start) > w.opts.MaxWaitTime {
			return awserr.NewWaiterTimeout(time.Since(start))
		}

		output, err := Execute[shape.Values](ctx, c, op, input)
		r := result{err: err}
		if output != nil {
			r.output = *output
		}

		for _, acceptor := range w.acceptors {
			if !acceptor.Matcher.Match(r) {
				continue
			}
			switch acceptor.State {
			case AcceptorSuccess:
				return nil
			case AcceptorFailure:
				return awserr.NewWaiterFailed(fmt.Sprintf("acceptor matched failure state on attempt %d", attempt+1))
			case AcceptorRetry:
				goto sleep
			}
		}

	sleep:
		if w.opts.MaxWaitTime > 0 && time.Since(start) > w.opts.MaxWaitTime {
			return awserr.NewWaiterTimeout(time.Since(start))
		}

		timer := time.NewTimer(w.nextDelay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return awserr.NewWaiterTimeout(time.Since(start))
}
