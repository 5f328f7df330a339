package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/trace"
)

// SNSPublisher publishes notifications to an SNS topic.
type SNSPublisher struct {
	client   *sns.Client
	topicARN string
	logger   *zap.Logger
}

// NewSNSPublisher creates a publisher bound to a topic.
func NewSNSPublisher(client *sns.Client, topicARN string, logger *zap.Logger) *SNSPublisher {
	return &SNSPublisher{
		client:   client,
		topicARN: topicARN,
		logger:   logger,
	}
}

// Publish serializes body as JSON and publishes it with the event type as a
// message attribute so subscriptions can filter without parsing the body.
func (p *SNSPublisher) Publish(ctx context.Context, eventType string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal notification body: %w", err)
	}

	attributes := map[string]types.MessageAttributeValue{
		"eventType": {
			DataType:    aws.String("String"),
			StringValue: aws.String(eventType),
		},
	}
	if id := trace.FromContext(ctx); id != "" {
		attributes["trace"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(id),
		}
	}

	result, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(p.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: attributes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish notification to SNS: %w", err)
	}

	p.logger.Debug("Notification published",
		zap.String("eventType", eventType),
		zap.String("messageId", aws.ToString(result.MessageId)),
	)
	return aws.ToString(result.MessageId), nil
}
