// Package metrics defines the emitter interface the platform packages report
// through, with CloudWatch, Prometheus, and no-op implementations.
package metrics

import (
	"context"
	"time"
)

// Emitter receives counter and timing observations. Implementations must be
// safe for concurrent use and must never fail the calling operation; emission
// errors are logged and swallowed.
type Emitter interface {
	// Count adds value to the named counter, tagged with dimensions.
	Count(ctx context.Context, name string, value float64, dimensions map[string]string)

	// Timing records a duration observation for the named metric.
	Timing(ctx context.Context, name string, d time.Duration, dimensions map[string]string)
}

// Noop is an Emitter that discards all observations.
type Noop struct{}

func (Noop) Count(context.Context, string, float64, map[string]string)        {}
func (Noop) Timing(context.Context, string, time.Duration, map[string]string) {}
