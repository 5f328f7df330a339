// Package ws pushes messages to API Gateway WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"
)

// ErrConnectionGone marks a connection the gateway no longer knows about.
// Callers should drop the connection from their registry when they see it.
var ErrConnectionGone = errors.New("websocket connection gone")

// Sender posts payloads to connected WebSocket clients through the API
// Gateway management API.
type Sender struct {
	client *apigatewaymanagementapi.Client
	logger *zap.Logger
}

// NewSender creates a sender. The client must be configured with the
// WebSocket API's management endpoint as its base endpoint.
func NewSender(client *apigatewaymanagementapi.Client, logger *zap.Logger) *Sender {
	return &Sender{client: client, logger: logger}
}

// NewSenderForEndpoint builds the management client for endpoint and wraps it.
func NewSenderForEndpoint(cfg aws.Config, endpoint string, logger *zap.Logger) *Sender {
	client := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = &endpoint
	})
	return &Sender{client: client, logger: logger}
}

// Send posts data to a single connection. A stale connection comes back as
// ErrConnectionGone; other failures are returned as-is.
func (s *Sender) Send(ctx context.Context, connectionID string, data []byte) error {
	_, err := s.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: &connectionID,
		Data:         data,
	})
	if err != nil {
		var gone *apigwtypes.GoneException
		if errors.As(err, &gone) {
			return fmt.Errorf("%w: %s", ErrConnectionGone, connectionID)
		}
		return fmt.Errorf("failed to post to connection %s: %w", connectionID, err)
	}
	return nil
}

// SendJSON serializes body and posts it to a single connection.
func (s *Sender) SendJSON(ctx context.Context, connectionID string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal websocket payload: %w", err)
	}
	return s.Send(ctx, connectionID, data)
}

// Broadcast posts data to every connection, invoking onGone for each stale
// one so the caller can purge it. Send failures other than gone connections
// are logged and do not stop the fan-out; the count of live deliveries is
// returned.
func (s *Sender) Broadcast(ctx context.Context, connectionIDs []string, data []byte, onGone func(connectionID string)) int {
	delivered := 0
	for _, id := range connectionIDs {
		err := s.Send(ctx, id, data)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrConnectionGone):
			s.logger.Info("Dropping stale websocket connection", zap.String("connectionId", id))
			if onGone != nil {
				onGone(id)
			}
		default:
			s.logger.Error("Failed to post to websocket connection",
				zap.String("connectionId", id),
				zap.Error(err),
			)
		}
	}
	return delivered
}
