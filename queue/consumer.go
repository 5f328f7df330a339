package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/metrics"
	"github.com/stackmesh/platform-go/timeutil"
	"github.com/stackmesh/platform-go/trace"
)

// Metric names emitted by the controller.
const (
	metricMessagesPublished  = "MessagesPublished"
	metricPublishFailures    = "PublishFailures"
	metricPoisonMessages     = "PoisonMessages"
	metricProcessingFailures = "ProcessingFailures"
	metricReceiveFailures    = "ReceiveFailures"
	metricQueueTime          = "MessageQueueTime"
	metricProcessingTime     = "MessageProcessingTime"
)

// receiveFailureBackoff is the fixed pause after a failed batch receive,
// guarding against a tight error loop hammering the transport.
const receiveFailureBackoff = time.Second

// ConsumerConfig is the construction surface of a consumer.
type ConsumerConfig struct {
	// LongPollWaitSeconds is the receive long-poll wait. Defaults to 20.
	LongPollWaitSeconds int32

	// MaxMessagesPerPoll is the batch size ceiling per poll. Defaults to 10,
	// the transport ceiling for SQS.
	MaxMessagesPerPoll int32

	// MakeAvailableOnError forces visibility to zero after an unhandled
	// processing failure instead of leaving the existing window untouched.
	MakeAvailableOnError bool

	// MaxVisibilityTimeoutSeconds overrides the per-hop ceiling used by the
	// processAfter delay calculation. Zero means the transport's native max.
	MaxVisibilityTimeoutSeconds int32
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.LongPollWaitSeconds <= 0 {
		c.LongPollWaitSeconds = 20
	}
	if c.MaxMessagesPerPoll <= 0 {
		c.MaxMessagesPerPoll = 10
	}
	return c
}

// StopOptions controls consumer shutdown. Flush keeps the loop polling until
// the queue reports empty; Timeout bounds how long the drain may take. The
// deadline is advisory: once it passes the loop stops waiting for further
// empty-poll confirmation.
type StopOptions struct {
	Flush   bool
	Timeout time.Duration
}

type consumerState int

const (
	stateIdle consumerState = iota
	stateRunning
	stateStopHard
	stateStopDrain
	stateStopped
)

// Consumer drives the polling lifecycle: it long-polls batches, decodes each
// message, and wires the redelivery policy to the transport. The only shared
// mutable state is the stop flag read at loop-iteration boundaries; all
// per-message work is stateless.
type Consumer struct {
	transport Transport
	handler   Handler
	cfg       ConsumerConfig
	policy    policy
	logger    *zap.Logger
	metrics   metrics.Emitter

	mu            sync.Mutex
	state         consumerState
	drainDeadline time.Time

	done     chan struct{}
	doneOnce sync.Once

	now func() time.Time
}

// NewConsumer creates a consumer for the given transport and handler. A nil
// emitter disables metrics.
func NewConsumer(transport Transport, handler Handler, cfg ConsumerConfig, logger *zap.Logger, emitter metrics.Emitter) *Consumer {
	if emitter == nil {
		emitter = metrics.Noop{}
	}
	cfg = cfg.withDefaults()
	return &Consumer{
		transport: transport,
		handler:   handler,
		cfg:       cfg,
		policy: policy{
			nativeMaxDelay:        transport.MaxDelaySeconds(),
			maxVisibilityOverride: cfg.MaxVisibilityTimeoutSeconds,
			logger:                logger,
		},
		logger:  logger,
		metrics: emitter,
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Start launches the receive loop. It returns an error if the consumer has
// already been started or stopped. Cancelling ctx acts as a hard stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle {
		return fmt.Errorf("consumer already started")
	}
	c.state = stateRunning
	go c.run(ctx)
	return nil
}

// Stop requests shutdown and blocks until the loop has exited. Without Flush
// the next loop iteration exits immediately; with Flush the loop keeps
// polling until a poll returns zero messages or the deadline passes.
func (c *Consumer) Stop(opts StopOptions) {
	c.mu.Lock()
	switch c.state {
	case stateIdle:
		c.state = stateStopped
		c.doneOnce.Do(func() { close(c.done) })
	case stateRunning:
		if opts.Flush {
			c.state = stateStopDrain
			if opts.Timeout > 0 {
				c.drainDeadline = c.now().Add(opts.Timeout)
			}
		} else {
			c.state = stateStopHard
		}
	}
	c.mu.Unlock()
	<-c.done
}

// Done is closed once the receive loop has fully exited.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) stopState() (consumerState, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.drainDeadline
}

func (c *Consumer) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.state = stateStopped
		c.mu.Unlock()
		c.doneOnce.Do(func() { close(c.done) })
		c.logger.Info("Consumer stopped")
	}()

	for {
		state, deadline := c.stopState()
		if state == stateStopHard {
			return
		}
		if state == stateStopDrain && !deadline.IsZero() && c.now().After(deadline) {
			c.logger.Warn("Drain deadline exceeded, stopping without empty-poll confirmation")
			return
		}
		if ctx.Err() != nil {
			return
		}

		msgs, err := c.transport.ReceiveBatch(ctx, c.cfg.MaxMessagesPerPoll, c.cfg.LongPollWaitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Batch receive failed", zap.Error(err))
			c.metrics.Count(ctx, metricReceiveFailures, 1, nil)
			c.sleep(ctx, receiveFailureBackoff)
			continue
		}

		if len(msgs) == 0 {
			// Re-read the stop state: a drain requested mid-poll ends on this
			// empty poll.
			if state, _ := c.stopState(); state == stateStopDrain {
				return
			}
			continue
		}

		// Every message in the batch is processed to completion before the
		// loop re-checks stop state; no mid-batch abandonment.
		var wg sync.WaitGroup
		for _, m := range msgs {
			wg.Add(1)
			go func(m RawMessage) {
				defer wg.Done()
				c.processMessage(ctx, m)
			}(m)
		}
		wg.Wait()
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (c *Consumer) processMessage(ctx context.Context, raw RawMessage) {
	now := c.now()

	env, err := decodeEnvelope(raw.Body)
	if err != nil {
		// Poison: no receipt-handle action; the transport's own redelivery
		// and dead-letter policy decide its fate.
		var excerpt string
		if perr, ok := err.(*PoisonError); ok {
			excerpt = perr.Raw
		}
		c.logger.Error("Dropping poison message",
			zap.Error(err),
			zap.String("body", excerpt),
		)
		c.metrics.Count(ctx, metricPoisonMessages, 1, nil)
		return
	}

	ctx = trace.WithTrace(ctx, env.Trace)

	deferred := env.publishCount() > 0
	dims := map[string]string{"deferred": strconv.FormatBool(deferred)}
	c.metrics.Timing(ctx, metricQueueTime, now.Sub(timeutil.FromEpochMillis(env.Timestamp)), dims)

	// processAfter gate: republish without invoking the handler while the
	// deadline lies in the future.
	if action, gated := c.policy.gate(env, now); gated {
		c.apply(ctx, raw, action)
		return
	}

	outcome, err := c.invoke(ctx, env, dims)
	if err != nil {
		c.logger.Error("Message processing failed",
			zap.Error(err),
			zap.String("trace", env.Trace),
			zap.Int("publishCount", env.publishCount()),
		)
		c.metrics.Count(ctx, metricProcessingFailures, 1, dims)
		if c.cfg.MakeAvailableOnError {
			if verr := c.transport.ChangeVisibility(ctx, raw.ReceiptHandle, 0); verr != nil {
				c.logger.Error("Failed to make message available after error", zap.Error(verr))
			}
		}
		// Otherwise leave the message untouched; it becomes redeliverable
		// when its existing visibility window lapses.
		return
	}

	c.apply(ctx, raw, c.policy.evaluate(env, outcome, c.now()))
}

// invoke runs the handler with panic containment and processing-time metrics.
func (c *Consumer) invoke(ctx context.Context, env *Envelope, dims map[string]string) (outcome Outcome, err error) {
	started := c.now()
	defer func() {
		c.metrics.Timing(ctx, metricProcessingTime, c.now().Sub(started), dims)
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return c.handler(ctx, Delivery{
		Data:         env.Data,
		Trace:        env.Trace,
		PublishedAt:  timeutil.FromEpochMillis(env.Timestamp),
		PublishCount: env.publishCount(),
	})
}

// apply executes the policy decision against the transport. Transport
// failures here are logged and left for the native redelivery machinery; they
// never propagate out of the loop.
func (c *Consumer) apply(ctx context.Context, raw RawMessage, action Action) {
	switch action.Kind {
	case ActionNone:

	case ActionAck:
		if err := c.transport.Delete(ctx, raw.ReceiptHandle); err != nil {
			c.logger.Error("Failed to ack message", zap.Error(err))
		}

	case ActionChangeVisibility:
		if err := c.transport.ChangeVisibility(ctx, raw.ReceiptHandle, action.VisibilitySeconds); err != nil {
			c.logger.Error("Failed to change message visibility", zap.Error(err))
		}

	case ActionRepublish:
		body, err := action.Next.encode()
		if err != nil {
			c.logger.Error("Failed to encode republished envelope", zap.Error(err))
			return
		}
		if _, err := c.transport.Enqueue(ctx, body, action.DelaySeconds); err != nil {
			// Leave the original in place; it will be redelivered.
			c.logger.Error("Failed to republish message", zap.Error(err))
			return
		}
		if err := c.transport.Delete(ctx, raw.ReceiptHandle); err != nil {
			c.logger.Error("Failed to ack message after republish", zap.Error(err))
		}
	}
}
