package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"

	"github.com/cyra/statusrate/internal/config"
	"github.com/cyra/statusrate/internal/parser"
)

// PutMetricData accepts at most this many datums per call.
const cloudWatchBatch = 1000

// CloudWatch publishes samples as custom CloudWatch metrics.
type CloudWatch struct {
	api       cloudwatchiface.CloudWatchAPI
	namespace string
	timeout   time.Duration
}

// NewCloudWatch creates a CloudWatch sink using the default AWS credential chain.
func NewCloudWatch(cfg config.OutputConfig) (*CloudWatch, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewCloudWatchWithAPI(cloudwatch.New(sess), cfg.Namespace, cfg.Timeout), nil
}

// NewCloudWatchWithAPI creates a CloudWatch sink around an existing client.
func NewCloudWatchWithAPI(api cloudwatchiface.CloudWatchAPI, namespace string, timeout time.Duration) *CloudWatch {
	return &CloudWatch{api: api, namespace: namespace, timeout: timeout}
}

func (c *CloudWatch) Name() string {
	return "cloudwatch"
}

func (c *CloudWatch) Ship(ctx context.Context, samples []parser.MetricSample, ts time.Time) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data := make([]*cloudwatch.MetricDatum, 0, len(samples))
	for _, m := range samples {
		data = append(data, &cloudwatch.MetricDatum{
			MetricName: aws.String(m.Name),
			Value:      aws.Float64(m.Value),
			Unit:       aws.String(cloudWatchUnit(m.Units)),
			Timestamp:  aws.Time(ts),
		})
	}

	for start := 0; start < len(data); start += cloudWatchBatch {
		end := start + cloudWatchBatch
		if end > len(data) {
			end = len(data)
		}
		_, err := c.api.PutMetricDataWithContext(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
	}
	return nil
}

func cloudWatchUnit(units string) string {
	if units == parser.UnitResponsesPerSec {
		return cloudwatch.StandardUnitCountSecond
	}
	return cloudwatch.StandardUnitNone
}
