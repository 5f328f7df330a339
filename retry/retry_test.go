package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/errors"
	"github.com/stackmesh/platform-go/metrics"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

func TestWithBackoffSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithBackoffRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.NewTransient("throttled", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoffStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		calls++
		return errors.NewValidation("bad input")
	})

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 1, calls)
}

func TestWithBackoffExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		calls++
		return errors.NewTransient("still down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.True(t, errors.IsTransient(err))
}

func TestWithBackoffHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithBackoff(ctx, fastConfig(), func() error {
		calls++
		cancel()
		return errors.NewTransient("throttled", nil)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient platform error", errors.NewTransient("x", nil), true},
		{"validation platform error", errors.NewValidation("x"), false},
		{"plain error", stderrors.New("boom"), false},
		{"throttling api error", &smithy.GenericAPIError{Code: "ThrottlingException"}, true},
		{"access denied api error", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDelayIsBounded(t *testing.T) {
	cfg := fastConfig()
	for attempt := 0; attempt < 10; attempt++ {
		d := cfg.delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, cfg.MaxDelay)
	}
}

func TestTimedPassesThroughResult(t *testing.T) {
	logger := zap.NewNop()
	boom := stderrors.New("boom")

	err := Timed(context.Background(), "saveNode", logger, metrics.Noop{}, func() error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = Timed(context.Background(), "saveNode", logger, nil, func() error {
		return nil
	})
	assert.NoError(t, err)
}
