// Package sqs implements queue.Transport on Amazon SQS.
package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/stackmesh/platform-go/queue"
)

// SQS caps the native enqueue delay at 15 minutes.
const maxDelaySeconds = 900

// Transport adapts an SQS queue to the queue.Transport contract.
type Transport struct {
	client   *awssqs.Client
	queueURL string
}

// New creates a transport bound to a queue URL.
func New(client *awssqs.Client, queueURL string) *Transport {
	return &Transport{
		client:   client,
		queueURL: queueURL,
	}
}

// Enqueue sends a message body with the given delay.
func (t *Transport) Enqueue(ctx context.Context, body string, delaySeconds int32) (string, error) {
	out, err := t.client.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:     aws.String(t.queueURL),
		MessageBody:  aws.String(body),
		DelaySeconds: delaySeconds,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message to SQS: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// ReceiveBatch long-polls for up to maxMessages messages.
func (t *Transport) ReceiveBatch(ctx context.Context, maxMessages, waitSeconds int32) ([]queue.RawMessage, error) {
	out, err := t.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(t.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages from SQS: %w", err)
	}

	msgs := make([]queue.RawMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, queue.RawMessage{
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Delete acknowledges a message.
func (t *Transport) Delete(ctx context.Context, receiptHandle string) error {
	_, err := t.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(t.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message from SQS: %w", err)
	}
	return nil
}

// ChangeVisibility adjusts the invisibility window of an in-flight message.
func (t *Transport) ChangeVisibility(ctx context.Context, receiptHandle string, seconds int32) error {
	_, err := t.client.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(t.queueURL),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: seconds,
	})
	if err != nil {
		return fmt.Errorf("failed to change message visibility: %w", err)
	}
	return nil
}

// MaxDelaySeconds is the SQS native enqueue delay ceiling.
func (t *Transport) MaxDelaySeconds() int32 {
	return maxDelaySeconds
}
