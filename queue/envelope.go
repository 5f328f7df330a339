package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stackmesh/platform-go/timeutil"
)

// RepublishContext is the per-message republish bookkeeping. It is absent on
// first publish and present on every subsequent republish of the same logical
// message.
type RepublishContext struct {
	// PublishCount is the total number of times this logical message has been
	// republished. It is independent of the transport's native delivery count.
	PublishCount int `json:"publishCount,omitempty"`

	// MaxPublishExpiration is the epoch-millisecond instant after which no
	// further republishing is attempted. Once set it is never overwritten.
	MaxPublishExpiration int64 `json:"maxPublishExpiration,omitempty"`

	// ProcessAfter is the epoch-millisecond instant before which the message
	// must not be handed to the processing callback.
	ProcessAfter int64 `json:"processAfter,omitempty"`
}

// Envelope is the wire-level unit stored in the queue: the caller payload plus
// delivery metadata.
type Envelope struct {
	// Timestamp is epoch milliseconds when this copy of the message was
	// (re)published.
	Timestamp int64 `json:"timestamp"`

	// Trace is an opaque correlation identifier propagated from the original
	// publish.
	Trace string `json:"trace,omitempty"`

	// Data is the caller payload, opaque to the controller.
	Data json.RawMessage `json:"data"`

	// Republish carries republish bookkeeping once the message has been
	// republished, or a seeded processAfter deadline on first publish.
	Republish *RepublishContext `json:"republishContext,omitempty"`
}

// PoisonError classifies a raw body that cannot be decoded into a valid
// Envelope. Poison messages are logged, counted, and dropped without any
// receipt-handle action.
type PoisonError struct {
	Reason string
	Raw    string
}

func (e *PoisonError) Error() string {
	return fmt.Sprintf("poison message: %s", e.Reason)
}

// maxRawExcerpt bounds how much of a poison body makes it into logs.
const maxRawExcerpt = 256

func rawExcerpt(body string) string {
	if len(body) > maxRawExcerpt {
		return body[:maxRawExcerpt]
	}
	return body
}

// newEnvelope builds the envelope for a first publish. When the delay carries
// a "process after" deadline, the deadline is seeded into the republish
// context so the consumer can keep pushing the message out past the
// transport's native delay ceiling; the publish counter stays at zero because
// this is a first publish, not a republish.
func newEnvelope(data any, traceID string, now time.Time, delay Delay) (*Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	env := &Envelope{
		Timestamp: timeutil.ToEpochMillis(now),
		Trace:     traceID,
		Data:      payload,
	}

	if pa, ok := delay.(ProcessAfter); ok {
		env.Republish = &RepublishContext{
			ProcessAfter: timeutil.ToEpochMillis(pa.At),
		}
	}

	return env, nil
}

// decodeEnvelope parses a raw body into an Envelope. Missing or malformed
// timestamp/data fields classify the message as poison.
func decodeEnvelope(body string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, &PoisonError{Reason: fmt.Sprintf("malformed JSON: %v", err), Raw: rawExcerpt(body)}
	}
	if env.Timestamp <= 0 {
		return nil, &PoisonError{Reason: "missing or invalid timestamp", Raw: rawExcerpt(body)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &PoisonError{Reason: "missing data", Raw: rawExcerpt(body)}
	}
	return &env, nil
}

// encode serializes the envelope for wire transport.
func (e *Envelope) encode() (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(body), nil
}

// republished returns a copy of the envelope representing the next publish of
// the same logical message: timestamp reset to now and the publish counter
// incremented (created at 1 when no republish context exists yet). Expiration
// and processAfter carry over untouched.
func (e *Envelope) republished(now time.Time) *Envelope {
	next := *e
	next.Timestamp = timeutil.ToEpochMillis(now)
	if e.Republish == nil {
		next.Republish = &RepublishContext{PublishCount: 1}
	} else {
		rc := *e.Republish
		rc.PublishCount++
		next.Republish = &rc
	}
	return &next
}

// publishCount returns the republish counter, zero when the message has never
// been republished.
func (e *Envelope) publishCount() int {
	if e.Republish == nil {
		return 0
	}
	return e.Republish.PublishCount
}
