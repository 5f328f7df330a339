package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memTransport is an in-memory Transport with SQS-like semantics: per-message
// visibility windows, receive delays, and at-most-one in-flight receiver per
// message. Un-acked messages reappear after their visibility window lapses.
type memTransport struct {
	mu         sync.Mutex
	messages   []*memMessage
	nextID     int
	delays     []int32 // enqueue delays observed, in order
	receiveErr error   // next ReceiveBatch fails with this once

	// visibility is the default window applied on receive.
	visibility time.Duration
}

type memMessage struct {
	id          int
	body        string
	availableAt time.Time
	inflight    bool
	receipt     string
	deliveries  int
}

func newMemTransport() *memTransport {
	return &memTransport{visibility: 30 * time.Second}
}

func (t *memTransport) Enqueue(_ context.Context, body string, delaySeconds int32) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.delays = append(t.delays, delaySeconds)
	msg := &memMessage{
		id:          t.nextID,
		body:        body,
		availableAt: time.Now().Add(time.Duration(delaySeconds) * time.Second),
	}
	t.messages = append(t.messages, msg)
	return fmt.Sprintf("m-%d", msg.id), nil
}

func (t *memTransport) ReceiveBatch(ctx context.Context, maxMessages, waitSeconds int32) ([]RawMessage, error) {
	t.mu.Lock()
	if err := t.receiveErr; err != nil {
		t.receiveErr = nil
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	deadline := time.Now().Add(time.Duration(waitSeconds) * time.Second)
	for {
		if batch := t.take(int(maxMessages)); len(batch) > 0 {
			return batch, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (t *memTransport) take(max int) []RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var batch []RawMessage
	for _, m := range t.messages {
		if len(batch) >= max {
			break
		}
		if m.inflight && now.After(m.availableAt) {
			// Visibility lapsed without an ack; redeliverable.
			m.inflight = false
		}
		if m.inflight || now.Before(m.availableAt) {
			continue
		}
		m.inflight = true
		m.deliveries++
		m.availableAt = now.Add(t.visibility)
		m.receipt = fmt.Sprintf("r-%d-%d", m.id, m.deliveries)
		batch = append(batch, RawMessage{Body: m.body, ReceiptHandle: m.receipt})
	}
	return batch
}

func (t *memTransport) Delete(_ context.Context, receiptHandle string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, m := range t.messages {
		if m.inflight && m.receipt == receiptHandle {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown receipt handle %q", receiptHandle)
}

func (t *memTransport) ChangeVisibility(_ context.Context, receiptHandle string, seconds int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.messages {
		if m.inflight && m.receipt == receiptHandle {
			m.inflight = false
			m.availableAt = time.Now().Add(time.Duration(seconds) * time.Second)
			return nil
		}
	}
	return fmt.Errorf("unknown receipt handle %q", receiptHandle)
}

func (t *memTransport) MaxDelaySeconds() int32 { return 900 }

func (t *memTransport) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *memTransport) failNextReceive(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receiveErr = err
}

func (t *memTransport) enqueueDelays() []int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int32, len(t.delays))
	copy(out, t.delays)
	return out
}

// countingEmitter records metric observations for assertions.
type countingEmitter struct {
	mu      sync.Mutex
	counts  map[string]float64
	timings map[string]int
	dims    map[string]map[string]string
}

func newCountingEmitter() *countingEmitter {
	return &countingEmitter{
		counts:  make(map[string]float64),
		timings: make(map[string]int),
		dims:    make(map[string]map[string]string),
	}
}

func (e *countingEmitter) Count(_ context.Context, name string, value float64, dims map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counts[name] += value
	e.dims[name] = dims
}

func (e *countingEmitter) Timing(_ context.Context, name string, _ time.Duration, dims map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timings[name]++
	e.dims[name] = dims
}

func (e *countingEmitter) count(name string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[name]
}

func (e *countingEmitter) timingCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timings[name]
}
