// Package queue implements a message redelivery controller for an
// at-least-once point-to-point work queue.
//
// A Publisher wraps caller payloads in an Envelope and enqueues them with a
// computed delay; a Consumer long-polls batches, hands each decoded message to
// a caller-supplied Handler, and turns the handler's Outcome into one of three
// transport actions: acknowledge, change visibility, or republish-and-ack.
// Republishing lets a message wait far beyond the transport's native maximum
// delay, at the cost of an application-level publish counter tracked in the
// envelope.
package queue

import "context"

// RawMessage is a single received message before envelope decoding.
type RawMessage struct {
	Body          string
	ReceiptHandle string
}

// Transport is the narrow contract the controller requires from the
// underlying queue. The reference implementation is SQS (queue/sqs); any
// at-least-once queue with visibility timeouts and a bounded native delay can
// satisfy it.
type Transport interface {
	// Enqueue publishes a message body with the given delay and returns the
	// transport-assigned message ID.
	Enqueue(ctx context.Context, body string, delaySeconds int32) (string, error)

	// ReceiveBatch long-polls for up to maxMessages messages, waiting at most
	// waitSeconds. An empty slice and nil error means the poll timed out.
	ReceiveBatch(ctx context.Context, maxMessages, waitSeconds int32) ([]RawMessage, error)

	// Delete acknowledges a received message, removing it from the queue.
	Delete(ctx context.Context, receiptHandle string) error

	// ChangeVisibility extends or shortens the invisibility window of an
	// in-flight message. Zero makes it immediately redeliverable.
	ChangeVisibility(ctx context.Context, receiptHandle string, seconds int32) error

	// MaxDelaySeconds is the transport's native maximum enqueue delay.
	MaxDelaySeconds() int32
}
