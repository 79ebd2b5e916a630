package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{RetryConfig: &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}}}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg       string
		retryable bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"NOT_FOUND: process 'x' not found", false},
		{"invalid argument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableZeebeError(errors.New(tt.msg)))
		})
	}
}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	c := newRetryClient(3)
	calls := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return int64(42), nil
	}, "start process")

	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := newRetryClient(3)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("process 'driver-application-submitted' not found")
	}, "start process")

	assert.ErrorIs(t, err, ErrProcessNotFound)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	c := newRetryClient(2)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("unavailable")
	}, "start process")

	assert.ErrorIs(t, err, ErrBrokerUnavailable)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_Cancelled(t *testing.T) {
	c := newRetryClient(5)
	c.config.RetryConfig.BaseDelay = time.Hour
	c.config.RetryConfig.MaxDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
		return nil, errors.New("timeout")
	}, "start process")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapZeebeError(t *testing.T) {
	assert.ErrorIs(t, mapZeebeError(errors.New("permission denied"), "op", 0), ErrCommandFailed)
	assert.ErrorIs(t, mapZeebeError(errors.New("deadline exceeded"), "op", 0), ErrBrokerUnavailable)
}
