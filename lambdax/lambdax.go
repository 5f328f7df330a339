// Package lambdax adapts the platform's chi routers to AWS Lambda behind an
// API Gateway HTTP API.
package lambdax

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChiHandler wraps a chi router as an API Gateway V2 Lambda handler. It
// forwards authorizer claims into request headers so handlers behind a
// gateway JWT authorizer see the same identity headers as local services.
type ChiHandler struct {
	adapter *chiadapter.ChiLambdaV2
	logger  *zap.Logger
	started time.Time
}

// NewChiHandler creates the Lambda adapter around router.
func NewChiHandler(router *chi.Mux, logger *zap.Logger) *ChiHandler {
	return &ChiHandler{
		adapter: chiadapter.NewV2(router),
		logger:  logger,
		started: time.Now(),
	}
}

// Handle is the Lambda entry point.
func (h *ChiHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	h.logger.Debug("Lambda request",
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("requestId", req.RequestContext.RequestID),
	)
	forwardAuthorizerClaims(&req)
	return h.adapter.ProxyWithContextV2(ctx, req)
}

// Start registers the handler with the Lambda runtime and blocks.
func (h *ChiHandler) Start() {
	h.logger.Info("Lambda handler ready",
		zap.Duration("coldStart", time.Since(h.started)),
	)
	lambda.Start(h.Handle)
}

// forwardAuthorizerClaims copies identity claims set by a gateway Lambda
// authorizer into request headers.
func forwardAuthorizerClaims(req *events.APIGatewayV2HTTPRequest) {
	if req.RequestContext.Authorizer == nil || req.RequestContext.Authorizer.Lambda == nil {
		return
	}
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	claims := req.RequestContext.Authorizer.Lambda
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		req.Headers["X-User-ID"] = sub
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		req.Headers["X-User-Email"] = email
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		req.Headers["X-User-Roles"] = role
	}
}
