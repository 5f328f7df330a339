package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmPrefix marks a config value as an SSM Parameter Store reference, e.g.
// "ssm:/platform/prod/jwt-secret".
const ssmPrefix = "ssm:"

// SSMResolver fetches parameter values from SSM Parameter Store.
type SSMResolver struct {
	client *ssm.Client
}

// NewSSMResolver creates a resolver over an SSM client.
func NewSSMResolver(client *ssm.Client) *SSMResolver {
	return &SSMResolver{client: client}
}

// Get fetches a single parameter, decrypting SecureString values.
func (r *SSMResolver) Get(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get SSM parameter %s: %w", name, err)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// ResolveSecrets replaces every "ssm:"-prefixed secret field in cfg with the
// parameter value it references. Only fields that plausibly hold secrets are
// resolved; structural settings stay literal.
func (r *SSMResolver) ResolveSecrets(ctx context.Context, cfg *Config) error {
	fields := []*string{
		&cfg.JWTSecret,
		&cfg.Queue.URL,
		&cfg.SNSTopicARN,
		&cfg.WebSocketEndpoint,
	}
	for _, field := range fields {
		if !strings.HasPrefix(*field, ssmPrefix) {
			continue
		}
		name := strings.TrimPrefix(*field, ssmPrefix)
		value, err := r.Get(ctx, name)
		if err != nil {
			return err
		}
		*field = value
	}
	return nil
}
