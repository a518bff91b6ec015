package log

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestTimerAroundSuccess(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	logger := New(cfg)

	timer := NewRequestTimer(logger, 8) // errorLevel unused on success path
	req := &RequestLog{Service: "s3", Operation: "GetObject", RequestID: "1"}

	resp, err := timer.Around(context.Background(), req, func() (*ResponseLog, error) {
		return &ResponseLog{StatusCode: 200}, nil
	})

	require.NoError(t, err)
	require.True(t, resp.Success)
	require.GreaterOrEqual(t, resp.DurationMs, int64(0))
}

func TestRequestTimerAroundFailure(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	logger := New(cfg)

	timer := NewRequestTimer(logger, 8)
	req := &RequestLog{Service: "s3", Operation: "GetObject"}
	wantErr := errors.New("boom")

	resp, err := timer.Around(context.Background(), req, func() (*ResponseLog, error) {
		return &ResponseLog{ErrorCode: "InternalError"}, wantErr
	})

	require.ErrorIs(t, err, wantErr)
	require.False(t, resp.Success)
	require.Equal(t, "InternalError", resp.ErrorCode)
}
