package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, int32(20), cfg.Queue.LongPollWaitSeconds)
	assert.Equal(t, int32(10), cfg.Queue.MaxMessagesPerPoll)
	assert.False(t, cfg.Queue.MakeAvailableOnError)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("QUEUE_URL", "https://sqs.example.com/q")
	t.Setenv("QUEUE_LONG_POLL_WAIT_SECONDS", "5")
	t.Setenv("QUEUE_MAKE_AVAILABLE_ON_ERROR", "true")
	t.Setenv("METRICS_NAMESPACE", "Orders")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://sqs.example.com/q", cfg.Queue.URL)
	assert.Equal(t, int32(5), cfg.Queue.LongPollWaitSeconds)
	assert.True(t, cfg.Queue.MakeAvailableOnError)
	assert.Equal(t, "Orders", cfg.MetricsNamespace)
}

func TestValidateRejectsBadPolling(t *testing.T) {
	t.Setenv("QUEUE_LONG_POLL_WAIT_SECONDS", "40")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("QUEUE_LONG_POLL_WAIT_SECONDS", "20")
	t.Setenv("QUEUE_MAX_MESSAGES_PER_POLL", "50")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidateProductionRequiresQueueURL(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("QUEUE_URL", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("QUEUE_URL", "https://sqs.example.com/q")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoadFileOverlaysEnvironment(t *testing.T) {
	t.Setenv("METRICS_NAMESPACE", "FromEnv")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
queue:
  url: https://sqs.example.com/overlay
  longPollWaitSeconds: 10
  maxMessagesPerPoll: 4
dynamodbTable: orders
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "https://sqs.example.com/overlay", cfg.Queue.URL)
	assert.Equal(t, int32(10), cfg.Queue.LongPollWaitSeconds)
	assert.Equal(t, int32(4), cfg.Queue.MaxMessagesPerPoll)
	assert.Equal(t, "orders", cfg.DynamoDBTable)
	// Values the file does not set keep their environment-derived values.
	assert.Equal(t, "FromEnv", cfg.MetricsNamespace)
}

func TestLoadFileRejectsMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
