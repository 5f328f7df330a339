package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCount(t *testing.T) {
	emitter := NewPrometheus("queue", nil)
	ctx := context.Background()

	emitter.Count(ctx, "MessagesPublished", 1, map[string]string{"queue": "orders"})
	emitter.Count(ctx, "MessagesPublished", 2, map[string]string{"queue": "orders"})

	families, err := emitter.Registry().Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "queue_MessagesPublished", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 1)
	assert.Equal(t, float64(3), families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestPrometheusTiming(t *testing.T) {
	emitter := NewPrometheus("queue", nil)

	emitter.Timing(context.Background(), "MessageProcessingTime", 250*time.Millisecond, nil)

	families, err := emitter.Registry().Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	hist := families[0].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 0.25, hist.GetSampleSum(), 1e-9)
}

func TestNoopIsSafe(t *testing.T) {
	var emitter Emitter = Noop{}
	emitter.Count(context.Background(), "anything", 1, nil)
	emitter.Timing(context.Background(), "anything", time.Second, nil)
}
