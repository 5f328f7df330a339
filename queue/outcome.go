package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Outcome is the closed result set a Handler may return for a delivery.
// Success acknowledges the message; RetryLater retries the same delivery
// attempt; RepublishLater acknowledges this delivery and publishes a new one.
type Outcome interface {
	isOutcome()
}

// Success indicates the message was handled and should be acknowledged.
type Success struct{}

func (Success) isOutcome() {}

// RetryLater makes the same delivery attempt visible again after RetryIn.
// This counts toward the transport's native delivery-count / dead-letter
// threshold and never touches the republish bookkeeping.
type RetryLater struct {
	Reason  string
	RetryIn time.Duration
}

func (RetryLater) isOutcome() {}

// Backoff is an exponential backoff specification for republish delays.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// RepublishLater acknowledges the current delivery and publishes a new
// logical delivery with a delay. Republishing does not count toward the
// native dead-letter threshold; it maintains its own publish counter.
type RepublishLater struct {
	Reason string

	// RetryIn is a fixed republish delay. Ignored when Backoff is set.
	RetryIn time.Duration

	// Backoff, when set, computes the delay from the publish counter instead
	// of a fixed interval.
	Backoff *Backoff

	// ExpireFromFirstPublish, when set on the first republish of a chain,
	// fixes the chain's expiration at now + this duration. It is ignored on
	// later republishes; callers cannot extend a deadline retroactively.
	ExpireFromFirstPublish time.Duration
}

func (RepublishLater) isOutcome() {}

// Delivery is what a Handler receives: the decoded payload plus the delivery
// metadata callers may want to inspect.
type Delivery struct {
	// Data is the caller payload as published.
	Data json.RawMessage

	// Trace is the correlation ID propagated from the original publish. It is
	// also installed in the handler's context (see package trace).
	Trace string

	// PublishedAt is when this copy of the message was (re)published.
	PublishedAt time.Time

	// PublishCount is the number of times the logical message has been
	// republished; zero on a first delivery.
	PublishCount int
}

// Handler processes a single delivery and reports the desired redelivery
// outcome. A returned error (or a panic) counts as an unhandled processing
// failure: the message is left untouched and becomes redeliverable when its
// visibility window lapses.
type Handler func(ctx context.Context, d Delivery) (Outcome, error)
