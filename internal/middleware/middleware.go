// Package middleware implements the ordered request/response transformer
// chain of spec §4.2: transport invocation (innermost) -> signing ->
// retry -> error-handling -> service-specific -> caller-supplied
// (outermost). The chain is composed once at client construction into
// nested closures; per-request invocation calls the outermost one, with no
// per-call allocation beyond the Context value.
package middleware

import "context"

// Request is the protocol-encoded, not-yet-signed request passed through
// the chain.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is what the terminal (transport) handler returns, unwound back
// up through the chain.
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
}

// Context is threaded through every middleware invocation (spec §3
// "MiddlewareContext"): the operation name, service identity for
// logging/metrics, and the request ID. Credential and signer state live in the
// signing middleware's closure, not here, since only that middleware
// needs them.
type Context struct {
	Operation string
	Service   string
	RequestID string
}

// Next is the continuation a middleware calls to invoke the rest of the
// chain.
type Next func(ctx context.Context, mctx Context, req *Request) (*Response, error)

// Middleware wraps Next with additional behavior.
type Middleware func(ctx context.Context, mctx Context, req *Request, next Next) (*Response, error)

// Chain composes middlewares (outermost first, as declared) around a
// terminal handler. The returned Next is what Client.execute invokes.
func Chain(terminal Next, mws ...Middleware) Next {
	next := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		wrapped := next
		next = func(ctx context.Context, mctx Context, req *Request) (*Response, error) {
			return mw(ctx, mctx, req, wrapped)
		}
	}
	return next
}
