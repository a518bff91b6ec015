package awssdk

import (
	"log/slog"

	"github.com/gocloudkit/awssdk-core/internal/awscreds"
	"github.com/gocloudkit/awssdk-core/internal/endpoint"
	"github.com/gocloudkit/awssdk-core/internal/middleware"
	"github.com/gocloudkit/awssdk-core/internal/obs"
	"github.com/gocloudkit/awssdk-core/internal/retry"
	"github.com/gocloudkit/awssdk-core/internal/transport"
)

// Option configures a Client at construction time, mirroring the
// teacher's functional-options pattern (sdk.Option) but without an error
// return, matching this package's New(cfg, opts...) *Client signature.
type Option func(*Client)

// WithCredentialProvider overrides the default credential chain
// (awscreds.NewChained()).
func WithCredentialProvider(p awscreds.Provider) Option {
	return func(c *Client) { c.credentials = p }
}

// WithHTTPClient overrides the transport's underlying HTTP client,
// primarily for tests substituting a fake round tripper.
func WithHTTPClient(h transport.HTTPClient) Option {
	return func(c *Client) { c.sender = transport.NewSender(h) }
}

// WithRetryPolicy overrides the default retry.Exponential policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retryPolicy = p }
}

// WithThrottleCodeClassifier overrides the throttle-code classifier passed
// to the retry policy. The retry middleware does not decode error codes
// from response bodies, so the classifier is not called for HTTP error
// responses.
func WithThrottleCodeClassifier(isThrottleCode func(string) bool) Option {
	return func(c *Client) { c.isThrottleCode = isThrottleCode }
}

// WithObservability attaches a metrics/tracing Provider (spec §4.1 steps
// 2/9). Without this option, Execute simply skips metrics emission.
func WithObservability(p *obs.Provider) Option {
	return func(c *Client) { c.obs = p }
}

// WithLogger overrides the client's structured logger (default
// slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMiddleware appends caller-supplied middleware, executed outermost
// (spec §4.2 step 6).
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) { c.callerMiddleware = append(c.callerMiddleware, mws...) }
}

// WithEndpointDiscovery enables discovery-aware endpoint resolution for
// operations that opt in (spec §4.8). discover performs the actual
// discovery operation call; isRequired controls synchronous-vs-background
// refresh behavior.
func WithEndpointDiscovery(discover endpoint.DiscoverFunc, isRequired bool) Option {
	return func(c *Client) {
		c.discovery = endpoint.NewDiscovery(discover, true, isRequired)
	}
}
