package middleware

import (
	"context"
	"net/http"

	"github.com/gocloudkit/awssdk-core/internal/transport"
)

// Terminal builds the innermost handler (spec §4.2 step 1): calls the
// HTTP transport with ctx as it was passed in. No per-config timeout is
// applied here or by the client core, so a request is bounded only by a
// deadline the caller's ctx already carries.
func Terminal(sender *transport.Sender) Next {
	return func(ctx context.Context, _ Context, req *Request) (*Response, error) {
		headers := make(http.Header, len(req.Headers))
		for k, v := range req.Headers {
			headers.Set(k, v)
		}

		resp, err := sender.Send(ctx, &transport.Request{
			Method:  req.Method,
			URL:     req.URL,
			Headers: headers,
			Body:    req.Body,
		})
		if err != nil {
			return nil, err
		}
		return &Response{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}, nil
	}
}
