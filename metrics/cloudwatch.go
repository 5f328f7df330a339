package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatch emits metrics to AWS CloudWatch under a fixed namespace.
type CloudWatch struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewCloudWatch creates a CloudWatch emitter. A nil client yields an emitter
// that skips all emission, which keeps local development paths quiet.
func NewCloudWatch(namespace string, client *cloudwatch.Client, logger *zap.Logger) *CloudWatch {
	return &CloudWatch{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// Count adds value to the named counter.
func (c *CloudWatch) Count(ctx context.Context, name string, value float64, dimensions map[string]string) {
	c.put(ctx, types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: toDimensions(dimensions),
		Value:      aws.Float64(value),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	})
}

// Timing records a duration observation in milliseconds.
func (c *CloudWatch) Timing(ctx context.Context, name string, d time.Duration, dimensions map[string]string) {
	c.put(ctx, types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: toDimensions(dimensions),
		Value:      aws.Float64(float64(d.Milliseconds())),
		Unit:       types.StandardUnitMilliseconds,
		Timestamp:  aws.Time(time.Now()),
	})
}

func (c *CloudWatch) put(ctx context.Context, datum types.MetricDatum) {
	if c.client == nil {
		return // skip if no client configured
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: []types.MetricDatum{datum},
	}

	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		// Emission failures must never fail the calling operation.
		if c.logger != nil {
			c.logger.Warn("Failed to send metric to CloudWatch",
				zap.String("metric", aws.ToString(datum.MetricName)),
				zap.Error(err),
			)
		}
	}
}

func toDimensions(dimensions map[string]string) []types.Dimension {
	if len(dimensions) == 0 {
		return nil
	}
	out := make([]types.Dimension, 0, len(dimensions))
	for name, value := range dimensions {
		out = append(out, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	return out
}
