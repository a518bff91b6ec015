package awssdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/gocloudkit/awssdk-core/internal/awscreds"
	"github.com/gocloudkit/awssdk-core/internal/awserr"
	"github.com/gocloudkit/awssdk-core/internal/endpoint"
	"github.com/gocloudkit/awssdk-core/internal/log"
	"github.com/gocloudkit/awssdk-core/internal/middleware"
	"github.com/gocloudkit/awssdk-core/internal/obs"
	"github.com/gocloudkit/awssdk-core/internal/protocol"
	"github.com/gocloudkit/awssdk-core/internal/retry"
	"github.com/gocloudkit/awssdk-core/internal/shape"
	"github.com/gocloudkit/awssdk-core/internal/signer"
	"github.com/gocloudkit/awssdk-core/internal/transport"
)

// Client orchestrates one service's request pipeline (spec §4.1 Client
// Core): credential resolution, protocol encode/decode, the middleware
// chain, and endpoint resolution. A Client is safe for concurrent use;
// it holds no per-request mutable state beyond the shared caches owned
// by its credential provider and (optional) endpoint discovery.
type Client struct {
	cfg    Config
	codec  protocol.Codec
	signer *signer.Signer

	credentials    awscreds.Provider
	ownCredentials bool

	sender *transport.Sender

	retryPolicy    retry.Policy
	isThrottleCode func(string) bool

	callerMiddleware []middleware.Middleware
	discovery        *endpoint.Discovery
	handler          middleware.Next

	obs    *obs.Provider
	logger *slog.Logger

	requestCounter atomic.Uint64
	shutdown       atomic.Bool
}

// New builds a Client for cfg (spec §6 "Client.new(...)").
func New(cfg Config, opts ...Option) *Client {
	codec, err := protocol.New(cfg.Protocol)
	if err != nil {
		// cfg.Protocol is a compile-time-known constant in any real
		// caller; an unrecognized value here is a programming error.
		panic(fmt.Sprintf("awssdk: %v", err))
	}

	c := &Client{
		cfg:            cfg,
		codec:          codec,
		signer:         signer.New(cfg.Region, cfg.SigningName),
		retryPolicy:    retry.Exponential{Base: defaultRetryBase, MaxRetries: defaultMaxRetries},
		isThrottleCode: awserr.IsThrottleCode,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.credentials == nil {
		c.credentials = awscreds.NewChained()
		c.ownCredentials = true
	}
	if c.sender == nil {
		c.sender = transport.NewSender(nil)
	}
	c.handler = c.chain()

	return c
}

const (
	defaultRetryBase  = 100_000_000 // 100ms, in time.Duration nanosecond units
	defaultMaxRetries = 3
)

// chain builds the middleware.Next that New stores and every execute call
// invokes, composed outermost-first: caller-supplied, service-specific,
// error-handling, retry, signing, transport (spec §4.2). Chain treats
// mws[0] as outermost, so this order must list them outermost-first —
// Signing must run last (innermost, right before the transport) so a
// service middleware's request rewrite (e.g. path-vs-virtual-host) lands
// before signing, and ErrorHandling must sit outside Retry so Retry still
// sees the raw non-2xx Response to classify, not an already-typed error.
func (c *Client) chain() middleware.Next {
	terminal := middleware.Terminal(c.sender)

	mws := make([]middleware.Middleware, 0, 3+len(c.cfg.ServiceMiddleware)+len(c.callerMiddleware))
	mws = append(mws, c.callerMiddleware...)
	mws = append(mws, c.cfg.ServiceMiddleware...)
	mws = append(mws, middleware.ErrorHandling(c.codec, c.cfg.ErrorDecoder, c.logger, c.errorLevel()))
	mws = append(mws, middleware.Retry(c.retryPolicy, c.isThrottleCode, nil))
	mws = append(mws, middleware.Signing(c.signer, c.resolveCredential))

	return middleware.Chain(terminal, mws...)
}

func (c *Client) errorLevel() slog.Level {
	if c.cfg.ErrorLogLevel == 0 {
		return slog.LevelError
	}
	return c.cfg.ErrorLogLevel
}

func (c *Client) resolveCredential(ctx context.Context) (awscreds.Credential, error) {
	return c.credentials.GetCredential(ctx, c.logger)
}

// Operation describes one service call's wire shape (spec §3 Shape +
// §4.1 "operation name + input shape"), standing in for the generated
// per-operation stubs this package deliberately does not include.
type Operation struct {
	Name             string
	Method           string
	PathTemplate     string
	InputDescriptor  shape.Descriptor
	OutputDescriptor shape.Descriptor
	// Streaming marks the output as a raw payload. Execute does not read
	// this flag: the transport always reads the whole response body into
	// memory before decoding, streaming or not.
	Streaming bool
	// RequiresDiscovery marks this operation as needing the client's
	// configured endpoint.Discovery, if any (spec §4.8).
	RequiresDiscovery bool
}

// Execute runs op against input and decodes the response into Output
// (spec §4.1's generic execute, §6 "Client.execute[Input, Output]").
// Since this package carries no per-service generated shape structs
// (spec.md's stated non-goal), the decoded shape.Values is round-tripped
// through encoding/json into the caller's concrete Output type; callers
// that want the raw dynamic representation instantiate Execute[shape.Values].
func Execute[Output any](ctx context.Context, c *Client, op Operation, input shape.Values) (*Output, error) {
	if c.shutdown.Load() {
		return nil, awserr.NewAlreadyShutdown()
	}

	requestID := fmt.Sprintf("%s-%d", op.Name, c.requestCounter.Add(1))
	logger := log.WithRequestContext(c.logger, requestID, c.cfg.Service, op.Name)

	ctx, obsTimer := c.obs.Start(ctx, op.Name)

	reqLog := &log.RequestLog{Service: c.cfg.Service, Operation: op.Name, RequestID: requestID}
	logTimer := log.NewRequestTimer(logger, c.errorLevel())

	var values shape.Values
	_, err := logTimer.Around(ctx, reqLog, func() (*log.ResponseLog, error) {
		var invokeErr error
		values, invokeErr = c.invoke(ctx, requestID, op, input)
		resp := &log.ResponseLog{}
		if se, ok := invokeErr.(*awserr.ServiceError); ok {
			resp.StatusCode = se.StatusCode
			resp.ErrorCode = se.Code
		}
		return resp, invokeErr
	})
	obsTimer.Stop(err)
	if err != nil {
		if !isTypedAWSError(err) {
			logger.Error("request failed", log.Error(err))
		}
		return nil, err
	}

	var out Output
	if err := decodeInto(values, &out); err != nil {
		return nil, fmt.Errorf("awssdk: decode output: %w", err)
	}
	return &out, nil
}

// invoke runs the pipeline stages that don't depend on the caller's
// chosen Output type: endpoint resolution, encoding, the middleware
// chain, and decoding into shape.Values.
func (c *Client) invoke(ctx context.Context, requestID string, op Operation, input shape.Values) (shape.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baseURL, err := c.operationEndpoint(ctx, op)
	if err != nil {
		return nil, err
	}

	encoded, err := c.codec.Encode(op.Name, c.cfg.APIVersion, c.cfg.AmzTarget, op.PathTemplate, op.InputDescriptor, input)
	if err != nil {
		return nil, &awserr.ClientError{Kind: awserr.KindFailedToAccessPayload, Message: "encode request", Cause: err}
	}

	fullURL, err := joinURL(baseURL, encoded.URIPath, encoded.QueryString)
	if err != nil {
		return nil, &awserr.ClientError{Kind: awserr.KindInvalidURL, Message: fullURL, Cause: err}
	}

	headers := encoded.Headers
	if headers == nil {
		headers = make(map[string]string)
	}
	if encoded.ContentType != "" {
		headers["Content-Type"] = encoded.ContentType
	}

	req := &middleware.Request{Method: op.Method, URL: fullURL, Headers: headers, Body: encoded.Body}
	mctx := middleware.Context{Operation: op.Name, Service: c.cfg.Service, RequestID: requestID}

	resp, err := c.handler(ctx, mctx, req)
	if err != nil {
		return nil, err
	}

	return c.codec.Decode(protocol.DecodeInput{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}, op.OutputDescriptor)
}

// operationEndpoint resolves the base URL for op, consulting endpoint
// discovery when both the client and the operation opt in (spec §4.8).
func (c *Client) operationEndpoint(ctx context.Context, op Operation) (string, error) {
	base, err := c.cfg.resolveEndpoint()
	if err != nil {
		return "", err
	}
	if c.discovery == nil || !op.RequiresDiscovery {
		return base, nil
	}
	return c.discovery.Resolve(ctx, base)
}

func decodeInto(values shape.Values, out any) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func isTypedAWSError(err error) bool {
	switch err.(type) {
	case *awserr.ServiceError, *awserr.RawError, *awserr.ServerError, *awserr.ClientHTTPError, *awserr.ClientError:
		return true
	default:
		return false
	}
}

// joinURL combines base (scheme+host, no trailing slash assumed) with
// uriPath (already placeholder-substituted) and an encoded query string.
func joinURL(base, uriPath string, query map[string][]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if uriPath != "" {
		if !strings.HasPrefix(uriPath, "/") {
			uriPath = "/" + uriPath
		}
		u.Path = uriPath
	}
	if len(query) > 0 {
		values := url.Values{}
		for k, vs := range query {
			for _, v := range vs {
				values.Add(k, v)
			}
		}
		u.RawQuery = encodeSortedQuery(values)
	}
	return u.String(), nil
}

// encodeSortedQuery mirrors url.Values.Encode but is spelled out since
// this package also needs deterministic query ordering in the protocol
// codec (internal/protocol/placement.go); kept local to avoid exporting
// an internal helper across package boundaries.
func encodeSortedQuery(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		for _, val := range v[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(val))
		}
	}
	return sb.String()
}
