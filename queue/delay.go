package queue

import (
	"time"

	"github.com/stackmesh/platform-go/timeutil"
)

// Delay specifies when a published message should become visible. It is a
// closed set: Immediate, FixedDelay, or ProcessAfter.
type Delay interface {
	// delaySeconds converts the specification into a concrete wait honoring
	// the transport's native maximum delay.
	delaySeconds(now time.Time, nativeMax int32) int32
}

// Immediate publishes with no delay.
type Immediate struct{}

func (Immediate) delaySeconds(time.Time, int32) int32 { return 0 }

// FixedDelay publishes after a fixed number of seconds. The value is passed
// through unclamped; callers are expected to stay within the transport's
// native maximum.
type FixedDelay struct {
	Seconds int32
}

func (d FixedDelay) delaySeconds(time.Time, int32) int32 { return d.Seconds }

// ProcessAfter schedules processing at or after an absolute deadline that may
// lie arbitrarily far in the future. Each publish waits at most the ceiling
// (MaxVisibilityTimeout if set, else the transport's native maximum); the
// consumer republishes until the deadline is reached.
type ProcessAfter struct {
	At time.Time

	// MaxVisibilityTimeout overrides the per-hop ceiling in seconds. Zero
	// means use the transport's native maximum delay.
	MaxVisibilityTimeout int32
}

func (d ProcessAfter) delaySeconds(now time.Time, nativeMax int32) int32 {
	ceiling := nativeMax
	if d.MaxVisibilityTimeout > 0 {
		ceiling = d.MaxVisibilityTimeout
	}

	// A deadline in the past sends immediately; never negative-delay.
	remaining := timeutil.DurationToSeconds(d.At.Sub(now))
	if remaining > ceiling {
		return ceiling
	}
	return remaining
}
