// Package retry provides explicit higher-order wrappers for cross-cutting
// concerns: exponential-backoff retry, operation timing, and circuit breaking.
// Callers compose these at call sites instead of relying on decorators or
// reflection.
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/errors"
	"github.com/stackmesh/platform-go/metrics"
)

// Config defines retry behavior configuration
type Config struct {
	MaxAttempts   int           // Maximum number of attempts
	BaseDelay     time.Duration // Base delay between retries
	MaxDelay      time.Duration // Maximum delay between retries
	BackoffFactor float64       // Exponential backoff multiplier
	JitterFactor  float64       // Jitter factor to prevent thundering herd
}

// DefaultConfig returns default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// Operation is a retryable unit of work.
type Operation func() error

// IsRetryable reports whether err is worth retrying: platform transient
// errors and throttling-class AWS API errors qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsRetryable(err) {
		return true
	}
	return isAWSRetryable(err)
}

// isAWSRetryable checks for transient AWS API error codes.
func isAWSRetryable(err error) bool {
	var apiErr smithy.APIError
	if !stderrors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ServiceUnavailable", "Throttling", "ThrottlingException",
		"RequestTimeout", "RequestLimitExceeded",
		"ProvisionedThroughputExceededException", "InternalServerError":
		return true
	}
	return false
}

// WithBackoff executes an operation with exponential backoff retry logic.
// Non-retryable errors return immediately.
func WithBackoff(ctx context.Context, config Config, operation Operation) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(config.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// delay calculates the wait before the next attempt, with jitter.
func (c Config) delay(attempt int) time.Duration {
	backoff := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt))
	jitter := backoff * c.JitterFactor * (rand.Float64() - 0.5) * 2
	d := time.Duration(backoff + jitter)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Timed wraps an operation with duration logging and a timing metric, named
// after the operation. The emitter may be nil.
func Timed(ctx context.Context, name string, logger *zap.Logger, emitter metrics.Emitter, operation Operation) error {
	started := time.Now()
	err := operation()
	elapsed := time.Since(started)

	status := "success"
	if err != nil {
		status = "failure"
	}
	if emitter != nil {
		emitter.Timing(ctx, "OperationDuration", elapsed, map[string]string{
			"operation": name,
			"status":    status,
		})
	}
	logger.Debug("Operation completed",
		zap.String("operation", name),
		zap.Duration("elapsed", elapsed),
		zap.String("status", status),
	)
	return err
}
