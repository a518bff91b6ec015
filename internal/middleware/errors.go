package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gocloudkit/awssdk-core/internal/awserr"
	"github.com/gocloudkit/awssdk-core/internal/protocol"
	"github.com/gocloudkit/awssdk-core/pkg/secrets"
)

// ErrorDecoder turns a decoded {code, message} pair plus raw context into
// a service-specific typed error (spec §4.7 AWSErrorType), or (nil, false)
// if the service has no decoder registered for that code.
type ErrorDecoder func(code, message string, statusCode int, requestID string) (error, bool)

// ErrorHandling builds the error-handling middleware (spec §4.2 step 4):
// converts non-2xx responses into typed errors per §4.7, logging each one
// at errorLevel (the codec does no logging of its own, so raw parse
// failures are logged here too).
func ErrorHandling(codec protocol.Codec, decodeErr ErrorDecoder, logger *slog.Logger, errorLevel slog.Level) Middleware {
	return func(ctx context.Context, mctx Context, req *Request, next Next) (*Response, error) {
		resp, err := next(ctx, mctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		requestID := firstHeaderValue(resp.Headers, "x-amzn-requestid")
		if requestID == "" {
			requestID = firstHeaderValue(resp.Headers, "x-amz-request-id")
		}

		code, message, decodeErrErr := codec.DecodeError(protocol.DecodeInput{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Body,
		})
		// Some services echo the rejected access key ID back in error
		// messages (e.g. InvalidAccessKeyId); scrub it before the message
		// reaches logs or a caller-visible error.
		message = secrets.RedactAccessKeyIDs(message)
		if decodeErrErr != nil || code == "" {
			if logger != nil {
				logger.Log(ctx, errorLevel, "unrecognized AWS error response",
					slog.Int("status", resp.StatusCode), slog.String("request_id", requestID))
			}
			return nil, &awserr.RawError{
				StatusCode: resp.StatusCode,
				Message:    message,
				Body:       resp.Body,
				RequestID:  requestID,
			}
		}

		if decodeErr != nil {
			if typed, ok := decodeErr(code, message, resp.StatusCode, requestID); ok {
				if logger != nil {
					logger.Log(ctx, errorLevel, "AWS service error", slog.String("code", code), slog.String("request_id", requestID))
				}
				return nil, typed
			}
		}

		if logger != nil {
			logger.Log(ctx, errorLevel, "unclassified AWS error", slog.String("code", code), slog.Int("status", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return nil, &awserr.ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s: %s", code, message), RequestID: requestID}
		}
		return nil, &awserr.ClientHTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s: %s", code, message), RequestID: requestID}
	}
}

func firstHeaderValue(headers map[string][]string, name string) string {
	for k, vs := range headers {
		if len(vs) == 0 {
			continue
		}
		if equalFoldHeader(k, name) {
			return vs[0]
		}
	}
	return ""
}

func equalFoldHeader(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
