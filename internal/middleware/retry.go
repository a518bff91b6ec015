package middleware

import (
	"context"
	"time"

	"github.com/gocloudkit/awssdk-core/internal/retry"
	"github.com/gocloudkit/awssdk-core/internal/transport"
)

// Retry builds the retry middleware (spec §4.2 step 3): on failure,
// consults policy; on retry(wait) it sleeps then re-enters next; on
// dontRetry or after maxRetries it propagates. The middleware sits inside
// error-handling in the chain, so it must classify non-2xx responses
// itself — they have not yet been converted to typed errors. The Outcome
// it builds carries the status code, Retry-After and connection-closed
// state only: it does not decode a service error code from the response
// body, so isThrottleCode is handed to the policy but never sees a code.
// streamingBodySent, when non-nil, is consulted before each retry and —
// once it reports true — disables further retries, since the spec
// forbids retrying once a single byte of a streaming body has been sent.
func Retry(policy retry.Policy, isThrottleCode func(string) bool, streamingBodySent func() bool) Middleware {
	return func(ctx context.Context, mctx Context, req *Request, next Next) (*Response, error) {
		for attempt := 0; ; attempt++ {
			resp, err := next(ctx, mctx, req)

			outcome, retryableResult := classify(resp, err)
			if !retryableResult {
				return resp, err
			}

			if streamingBodySent != nil && streamingBodySent() {
				return resp, err
			}
			if ctx.Err() != nil {
				return resp, err
			}

			status := policy.WaitTime(outcome, attempt, isThrottleCode)
			if !status.ShouldRetry {
				return resp, err
			}

			timer := time.NewTimer(status.Wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return resp, err
			}
		}
	}
}

// classify reports the retry.Outcome for this attempt and whether the
// attempt even needs classification (a clean 2xx with no error never does).
func classify(resp *Response, err error) (retry.Outcome, bool) {
	if err != nil {
		return outcomeFromError(err, resp), true
	}
	if resp == nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp == nil {
			return retry.Outcome{}, true
		}
		outcome := retry.Outcome{StatusCode: resp.StatusCode}
		if ra := resp.Headers["Retry-After"]; len(ra) > 0 {
			if d, ok := retry.ParseRetryAfter(ra[0]); ok {
				outcome.HasRetryAfter = true
				outcome.RetryAfter = d
			}
		}
		return outcome, true
	}
	return retry.Outcome{}, false
}

func outcomeFromError(err error, resp *Response) retry.Outcome {
	var failure *transport.Failure
	if asFailure(err, &failure) {
		return retry.Outcome{ConnectionClosed: failure.ConnectionClosed()}
	}
	if resp != nil {
		return retry.Outcome{StatusCode: resp.StatusCode}
	}
	return retry.Outcome{}
}

func asFailure(err error, target **transport.Failure) bool {
	for err != nil {
		if f, ok := err.(*transport.Failure); ok {
			*target = f
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
