package awssdk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gocloudkit/awssdk-core/internal/awscreds"
	"github.com/gocloudkit/awssdk-core/internal/retry"
)

// TestWaitUntilRetriesThenSucceeds implements spec scenario 6: the
// operation throws a 404 twice, then succeeds; the waiter completes
// without error once the success acceptor matches. Delays are scaled
// down from the spec's illustrative ~2s so the suite stays fast.
func TestWaitUntilRetriesThenSucceeds(t *testing.T) {
	rt := &fakeRoundTripper{responses: []fakeResponse{
		{status: 404, body: `{}`},
		{status: 404, body: `{}`},
		{status: 200, body: `{"Message":"ready"}`},
	}}
	c := New(testConfig(),
		WithCredentialProvider(awscreds.NewStatic("AKIAEXAMPLE", "secret", "")),
		WithHTTPClient(rt),
	)

	w := NewWaiter([]Acceptor{
		{State: AcceptorSuccess, Matcher: SuccessMatcher{}},
		{State: AcceptorRetry, Matcher: ErrorStatusMatcher{StatusCode: 404}},
		{State: AcceptorFailure, Matcher: ErrorStatusMatcher{StatusCode: 500}},
	}, WaiterOptions{
		MinDelay:    10 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		MaxAttempts: 10,
		MaxWaitTime: 2 * time.Second,
	})

	start := time.Now()
	err := WaitUntil(context.Background(), c, getWidgetOperation(), nil, w)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, rt.requests, 3)
}

// TestWaitUntilFailsOnFailureAcceptor covers the failure-state path: a
// 500 response matches the failure acceptor and the waiter stops
// immediately instead of retrying.
func TestWaitUntilFailsOnFailureAcceptor(t *testing.T) {
	rt := &fakeRoundTripper{responses: []fakeResponse{
		{status: 500, body: `{}`},
	}}
	c := New(testConfig(),
		WithCredentialProvider(awscreds.NewStatic("AKIAEXAMPLE", "secret", "")),
		WithHTTPClient(rt),
		WithRetryPolicy(retry.NoRetry{}),
	)

	w := NewWaiter([]Acceptor{
		{State: AcceptorSuccess, Matcher: SuccessMatcher{}},
		{State: AcceptorFailure, Matcher: ErrorStatusMatcher{StatusCode: 500}},
	}, WaiterOptions{MinDelay: 10 * time.Millisecond, MaxAttempts: 10})

	err := WaitUntil(context.Background(), c, getWidgetOperation(), nil, w)
	require.Error(t, err)
	require.Len(t, rt.requests, 1)
}

// TestWaitUntilTimesOutAfterMaxAttempts covers the maxAttempts exhaustion
// termination rule when every attempt matches retry.
func TestWaitUntilTimesOutAfterMaxAttempts(t *testing.T) {
	responses := make([]fakeResponse, 3)
	for i := range responses {
		responses[i] = fakeResponse{status: 404, body: `{}`}
	}
	rt := &fakeRoundTripper{responses: responses}
	c := New(testConfig(),
		WithCredentialProvider(awscreds.NewStatic("AKIAEXAMPLE", "secret", "")),
		WithHTTPClient(rt),
	)

	w := NewWaiter([]Acceptor{
		{State: AcceptorRetry, Matcher: ErrorStatusMatcher{StatusCode: 404}},
	}, WaiterOptions{MinDelay: 5 * time.Millisecond, MaxDelay: 10 * time.Millisecond, MaxAttempts: 3})

	err := WaitUntil(context.Background(), c, getWidgetOperation(), nil, w)
	require.Error(t, err)
}
