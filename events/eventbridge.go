// Package events provides thin publishers over AWS EventBridge and SNS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/trace"
)

// Event is a domain event ready for publication.
type Event struct {
	// Type is the detail-type routed on by consumers.
	Type string
	// Source identifies the emitting service.
	Source string
	// Detail is the JSON-serializable event body.
	Detail any
	// Time defaults to now when zero.
	Time time.Time
}

// EventBridgePublisher publishes events to an EventBridge bus.
type EventBridgePublisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewEventBridgePublisher creates a publisher bound to an event bus.
func NewEventBridgePublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish sends a single event.
func (p *EventBridgePublisher) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch sends events in PutEvents-sized chunks.
func (p *EventBridgePublisher) PublishBatch(ctx context.Context, events []Event) error {
	// EventBridge limits to 10 events per PutEvents call.
	const batchSize = 10

	for start := 0; start < len(events); start += batchSize {
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishChunk(ctx, events[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishChunk(ctx context.Context, events []Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		detail, err := json.Marshal(event.Detail)
		if err != nil {
			p.logger.Error("Failed to marshal event detail",
				zap.Error(err),
				zap.String("eventType", event.Type),
			)
			continue
		}
		when := event.Time
		if when.IsZero() {
			when = time.Now()
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(event.Source),
			DetailType:   aws.String(event.Type),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(when),
			TraceHeader:  traceHeader(ctx),
		})
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", events[i].Type),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.busName),
	)
	return nil
}

func traceHeader(ctx context.Context) *string {
	if id := trace.FromContext(ctx); id != "" {
		return aws.String(id)
	}
	return nil
}
