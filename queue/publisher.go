package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/metrics"
	"github.com/stackmesh/platform-go/trace"
)

// Publisher wraps caller payloads in an Envelope and enqueues them on the
// transport with a computed delay.
type Publisher struct {
	transport Transport
	logger    *zap.Logger
	metrics   metrics.Emitter

	now func() time.Time
}

// NewPublisher creates a publisher. A nil emitter disables metrics.
func NewPublisher(transport Transport, logger *zap.Logger, emitter metrics.Emitter) *Publisher {
	if emitter == nil {
		emitter = metrics.Noop{}
	}
	return &Publisher{
		transport: transport,
		logger:    logger,
		metrics:   emitter,
		now:       time.Now,
	}
}

// Publish enqueues data wrapped in a fresh envelope. The trace ID is taken
// from ctx (see package trace) or generated when absent. A nil delay publishes
// immediately.
func (p *Publisher) Publish(ctx context.Context, data any, delay Delay) (string, error) {
	if delay == nil {
		delay = Immediate{}
	}

	traceID := trace.FromContext(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
	}

	now := p.now()
	env, err := newEnvelope(data, traceID, now, delay)
	if err != nil {
		return "", err
	}

	body, err := env.encode()
	if err != nil {
		return "", err
	}

	delaySeconds := delay.delaySeconds(now, p.transport.MaxDelaySeconds())
	id, err := p.transport.Enqueue(ctx, body, delaySeconds)
	if err != nil {
		p.metrics.Count(ctx, metricPublishFailures, 1, nil)
		return "", fmt.Errorf("failed to enqueue message: %w", err)
	}

	p.metrics.Count(ctx, metricMessagesPublished, 1, nil)
	p.logger.Debug("Message published",
		zap.String("messageId", id),
		zap.String("trace", traceID),
		zap.Int32("delaySeconds", delaySeconds),
	)
	return id, nil
}
