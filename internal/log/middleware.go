// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"log/slog"
	"time"
)

// RequestLog describes an outbound AWS operation invocation for logging
// purposes (spec §4.1 step 1, §7).
type RequestLog struct {
	// Service is the AWS service identifier (e.g. "s3", "dynamodb").
	Service string

	// Operation is the operation name (e.g. "GetObject").
	Operation string

	// RequestID is the monotonically increasing ID assigned by the client core.
	RequestID string

	// Endpoint is the resolved service endpoint for this call.
	Endpoint string

	// Metadata contains additional request metadata.
	Metadata map[string]interface{}
}

// ResponseLog describes the outcome of an AWS operation invocation.
type ResponseLog struct {
	// Success indicates whether the request completed without error.
	Success bool

	// StatusCode is the HTTP status code, if a response was received.
	StatusCode int

	// ErrorCode is the AWS error code, if the request failed with a typed error.
	ErrorCode string

	// DurationMs is the end-to-end duration of the request in milliseconds.
	DurationMs int64

	// Metadata contains additional response metadata.
	Metadata map[string]interface{}
}

// LogRequest logs an outbound request at requestLogLevel (default debug).
func LogRequest(ctx context.Context, logger *slog.Logger, level slog.Level, req *RequestLog) {
	attrs := []any{
		EventKey, "aws_request",
		ServiceKey, req.Service,
		OperationKey, req.Operation,
	}

	if req.RequestID != "" {
		attrs = append(attrs, RequestIDKey, req.RequestID)
	}

	if req.Endpoint != "" {
		attrs = append(attrs, "endpoint", req.Endpoint)
	}

	for k, v := range req.Metadata {
		attrs = append(attrs, k, v)
	}

	logger.Log(ctx, level, "sending aws request", attrs...)
}

// LogResponse logs the outcome of a request: successes at debug level,
// every failure at errorLevel. It does not tell typed AWS errors apart
// from other failures, so a typed error already logged by the
// error-handling middleware is logged here a second time.
func LogResponse(ctx context.Context, logger *slog.Logger, errorLevel slog.Level, req *RequestLog, resp *ResponseLog) {
	attrs := []any{
		EventKey, "aws_response",
		ServiceKey, req.Service,
		OperationKey, req.Operation,
		"success", resp.Success,
		DurationKey, resp.DurationMs,
	}

	if req.RequestID != "" {
		attrs = append(attrs, RequestIDKey, req.RequestID)
	}

	if resp.StatusCode > 0 {
		attrs = append(attrs, "status_code", resp.StatusCode)
	}

	if resp.ErrorCode != "" {
		attrs = append(attrs, "error_code", resp.ErrorCode)
	}

	for k, v := range resp.Metadata {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelDebug
	message := "aws request completed"

	if !resp.Success {
		level = errorLevel
		message = "aws request failed"
	}

	logger.Log(ctx, level, message, attrs...)
}

// RequestTimer wraps execution of a single AWS operation with request and
// response logging, mirroring the client core pipeline in spec §4.1.
type RequestTimer struct {
	logger     *slog.Logger
	errorLevel slog.Level
}

// NewRequestTimer creates a request/response logging helper.
func NewRequestTimer(logger *slog.Logger, errorLevel slog.Level) *RequestTimer {
	return &RequestTimer{logger: logger, errorLevel: errorLevel}
}

// Around logs req before calling handler and logs the outcome after,
// returning whatever handler returns unchanged.
func (t *RequestTimer) Around(ctx context.Context, req *RequestLog, handler func() (*ResponseLog, error)) (*ResponseLog, error) {
	start := time.Now()
	LogRequest(ctx, t.logger, slog.LevelDebug, req)

	resp, err := handler()

	duration := time.Since(start).Milliseconds()
	if resp == nil {
		resp = &ResponseLog{}
	}
	resp.DurationMs = duration
	resp.Success = err == nil

	LogResponse(ctx, t.logger, t.errorLevel, req, resp)

	return resp, err
}
