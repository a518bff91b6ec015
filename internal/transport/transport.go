// Package transport sends already-signed HTTP requests and classifies
// transport-level failures (connection, timeout, cancellation) for the
// retry middleware. Encoding, signing, and error-body parsing live one
// layer up (internal/protocol, internal/signer, internal/middleware); this
// package only knows how to move bytes.
//
// Grounded on the teacher's aws_sigv4 transport's *http.Client
// construction and classifyHTTPError, and on pkg/httpclient's connection
// pooling defaults.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Request is the wire-level request the client sends: method, full URL,
// headers, and body, already encoded and signed.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the raw wire-level response: status, headers, and body
// bytes, left for the protocol codec to decode.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Kind classifies a Failure for the retry middleware's classification
// rules (spec §4.6).
type Kind string

const (
	KindConnection  Kind = "connection"
	KindTimeout     Kind = "timeout"
	KindCancelled   Kind = "cancelled"
	KindInvalidReq  Kind = "invalid_request"
)

// Failure is a transport-level error: it never carries a parsed AWS error
// body, since by definition the body was never received intact.
type Failure struct {
	Kind  Kind
	Cause error
}

func (e *Failure) Error() string { return string(e.Kind) + ": " + e.Cause.Error() }
func (e *Failure) Unwrap() error { return e.Cause }

// ConnectionClosed reports whether this failure represents the remote
// closing the connection, one of the spec §4.6 retry classification
// triggers.
func (e *Failure) ConnectionClosed() bool {
	return e.Kind == KindConnection
}

// HTTPClient is the minimal surface this package needs from *http.Client,
// to allow tests to substitute a fake round tripper.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient builds the underlying *http.Client with the connection
// pooling the teacher's httpclient package uses: bounded idle connections,
// TLS 1.2 minimum, and a per-request timeout applied by the caller via
// context rather than client.Timeout (so in-flight streaming reads are not
// cut off mid-chunk).
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Sender executes a single already-signed request attempt and returns the
// raw response or a classified Failure.
type Sender struct {
	client HTTPClient
}

// NewSender wraps client (NewClient() if nil) as a Sender.
func NewSender(client HTTPClient) *Sender {
	if client == nil {
		client = NewClient()
	}
	return &Sender{client: client}
}

// Send performs one HTTP round trip. It never retries; the retry
// middleware (internal/middleware, driven by internal/retry) wraps
// repeated calls to Send.
func (s *Sender) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(string(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &Failure{Kind: KindInvalidReq, Cause: err}
	}
	httpReq.Header = req.Headers

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{Kind: KindConnection, Cause: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func classifyError(ctx context.Context, err error) *Failure {
	if ctx.Err() != nil {
		return &Failure{Kind: KindCancelled, Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: KindTimeout, Cause: err}
	}

	msg := err.Error()
	if strings.Contains(msg, "context canceled") || strings.Contains(msg, "context deadline exceeded") {
		return &Failure{Kind: KindCancelled, Cause: err}
	}
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "EOF") || strings.Contains(msg, "broken pipe") {
		return &Failure{Kind: KindConnection, Cause: err}
	}

	return &Failure{Kind: KindConnection, Cause: err}
}
