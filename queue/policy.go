package queue

import (
	"time"

	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/timeutil"
)

// ActionKind enumerates the transport actions a policy decision can produce.
type ActionKind int

const (
	// ActionNone leaves the message untouched; it becomes redeliverable when
	// its visibility window lapses.
	ActionNone ActionKind = iota

	// ActionAck deletes the message from the queue.
	ActionAck

	// ActionChangeVisibility makes the same delivery attempt visible again
	// after VisibilitySeconds.
	ActionChangeVisibility

	// ActionRepublish enqueues Next with DelaySeconds, then deletes the
	// current delivery.
	ActionRepublish
)

// Action is the decision produced for a single delivery.
type Action struct {
	Kind              ActionKind
	VisibilitySeconds int32
	Next              *Envelope
	DelaySeconds      int32

	// GaveUp marks an ActionAck issued because the republish chain reached
	// its expiration rather than because processing succeeded.
	GaveUp bool
}

// policy evaluates redelivery decisions. It is stateless; every decision is a
// pure function of the envelope, the outcome, and the clock reading.
type policy struct {
	nativeMaxDelay        int32
	maxVisibilityOverride int32
	logger                *zap.Logger
}

// gate is the pre-callback check: a message whose processAfter deadline has
// not been reached is republished immediately, pushed out by at most one
// visibility ceiling, and the processing callback is never invoked.
func (p policy) gate(env *Envelope, now time.Time) (Action, bool) {
	rc := env.Republish
	if rc == nil || rc.ProcessAfter == 0 {
		return Action{}, false
	}
	processAfter := timeutil.FromEpochMillis(rc.ProcessAfter)
	if !now.Before(processAfter) {
		return Action{}, false
	}

	delay := ProcessAfter{
		At:                   processAfter,
		MaxVisibilityTimeout: p.maxVisibilityOverride,
	}.delaySeconds(now, p.nativeMaxDelay)

	return Action{
		Kind:         ActionRepublish,
		Next:         env.republished(now),
		DelaySeconds: delay,
	}, true
}

// evaluate maps a processing outcome to the next transport action.
func (p policy) evaluate(env *Envelope, outcome Outcome, now time.Time) Action {
	switch o := outcome.(type) {
	case Success:
		return Action{Kind: ActionAck}

	case RetryLater:
		// Same delivery attempt, native delivery counter; the republish
		// bookkeeping is never touched here.
		return Action{
			Kind:              ActionChangeVisibility,
			VisibilitySeconds: timeutil.DurationToSeconds(o.RetryIn),
		}

	case RepublishLater:
		if rc := env.Republish; rc != nil && rc.MaxPublishExpiration != 0 &&
			!now.Before(timeutil.FromEpochMillis(rc.MaxPublishExpiration)) {
			p.logger.Error("republish chain reached expiration, giving up and acking",
				zap.String("trace", env.Trace),
				zap.Int("publishCount", rc.PublishCount),
				zap.Int64("maxPublishExpiration", rc.MaxPublishExpiration),
			)
			return Action{Kind: ActionAck, GaveUp: true}
		}

		next := env.republished(now)
		// Expiration is sticky: it can only be fixed by the very first
		// republish of the chain and is never overwritten afterwards.
		if next.Republish.PublishCount == 1 && next.Republish.MaxPublishExpiration == 0 &&
			o.ExpireFromFirstPublish > 0 {
			next.Republish.MaxPublishExpiration = timeutil.ToEpochMillis(now.Add(o.ExpireFromFirstPublish))
		}

		var delay int32
		if o.Backoff != nil {
			delay = backoffDelaySeconds(*o.Backoff, next.Republish.PublishCount)
		} else {
			delay = timeutil.DurationToSeconds(o.RetryIn)
		}

		return Action{
			Kind:         ActionRepublish,
			Next:         next,
			DelaySeconds: delay,
		}

	default:
		p.logger.Error("unknown processing outcome, leaving message untouched",
			zap.String("trace", env.Trace),
			zap.Any("outcome", outcome),
		)
		return Action{Kind: ActionNone}
	}
}

// backoffDelaySeconds computes the republish delay for an exponential
// backoff: min for a zero publish count, otherwise min + 2^publishCount
// seconds, hard-ceilinged at max.
func backoffDelaySeconds(b Backoff, publishCount int) int32 {
	minSec := int64(timeutil.DurationToSeconds(b.Min))
	maxSec := int64(timeutil.DurationToSeconds(b.Max))

	if publishCount <= 0 {
		if minSec > maxSec {
			return int32(maxSec)
		}
		return int32(minSec)
	}
	// Past 31 doublings the ceiling always wins; avoids shift overflow.
	if publishCount > 31 {
		return int32(maxSec)
	}

	delay := minSec + int64(1)<<uint(publishCount)
	if delay > maxSec {
		return int32(maxSec)
	}
	return int32(delay)
}
