// Package config loads platform configuration from environment variables,
// optionally overlaid from a YAML file, with hot reload and SSM Parameter
// Store secret resolution.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// QueueConfig holds the consumer/publisher construction surface.
type QueueConfig struct {
	// URL is the queue URL the transport binds to.
	URL string `yaml:"url"`
	// LongPollWaitSeconds is the receive long-poll wait.
	LongPollWaitSeconds int32 `yaml:"longPollWaitSeconds"`
	// MaxMessagesPerPoll is the per-poll batch ceiling.
	MaxMessagesPerPoll int32 `yaml:"maxMessagesPerPoll"`
	// MakeAvailableOnError forces visibility to zero on unhandled failures.
	MakeAvailableOnError bool `yaml:"makeAvailableOnError"`
	// MaxVisibilityTimeoutSeconds overrides the processAfter per-hop ceiling.
	MaxVisibilityTimeoutSeconds int32 `yaml:"maxVisibilityTimeoutSeconds"`
}

// Config holds all platform configuration
type Config struct {
	Environment string `yaml:"environment"`
	AWSRegion   string `yaml:"awsRegion"`
	LogLevel    string `yaml:"logLevel"`

	Queue QueueConfig `yaml:"queue"`

	// DynamoDB
	DynamoDBTable string `yaml:"dynamodbTable"`

	// Messaging
	EventBusName string `yaml:"eventBusName"`
	SNSTopicARN  string `yaml:"snsTopicArn"`

	// WebSocket push
	WebSocketEndpoint string `yaml:"websocketEndpoint"`

	// Observability
	MetricsNamespace string `yaml:"metricsNamespace"`
	EnableMetrics    bool   `yaml:"enableMetrics"`
	EnableTracing    bool   `yaml:"enableTracing"`
	OTLPEndpoint     string `yaml:"otlpEndpoint"`

	// Authentication
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		AWSRegion:   getEnv("AWS_REGION", "us-west-2"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Queue: QueueConfig{
			URL:                         getEnv("QUEUE_URL", ""),
			LongPollWaitSeconds:         int32(getEnvInt("QUEUE_LONG_POLL_WAIT_SECONDS", 20)),
			MaxMessagesPerPoll:          int32(getEnvInt("QUEUE_MAX_MESSAGES_PER_POLL", 10)),
			MakeAvailableOnError:        getEnvBool("QUEUE_MAKE_AVAILABLE_ON_ERROR", false),
			MaxVisibilityTimeoutSeconds: int32(getEnvInt("QUEUE_MAX_VISIBILITY_TIMEOUT_SECONDS", 0)),
		},

		DynamoDBTable: getEnv("DYNAMODB_TABLE", ""),
		EventBusName:  getEnv("EVENT_BUS_NAME", ""),
		SNSTopicARN:   getEnv("SNS_TOPIC_ARN", ""),

		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Platform"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Queue.LongPollWaitSeconds < 0 || c.Queue.LongPollWaitSeconds > 20 {
		return fmt.Errorf("QUEUE_LONG_POLL_WAIT_SECONDS must be between 0 and 20")
	}
	if c.Queue.MaxMessagesPerPoll < 1 || c.Queue.MaxMessagesPerPoll > 10 {
		return fmt.Errorf("QUEUE_MAX_MESSAGES_PER_POLL must be between 1 and 10")
	}
	if c.Environment == "production" {
		if c.Queue.URL == "" {
			return fmt.Errorf("QUEUE_URL is required in production")
		}
		if c.JWTSecret == "" && c.JWTIssuer != "" {
			return fmt.Errorf("JWT_SECRET is required when JWT_ISSUER is set")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
