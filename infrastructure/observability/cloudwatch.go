package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
)

const cloudWatchTimeout = 2 * time.Second

// CloudWatchAPI is the subset of the CloudWatch client used for metrics
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics pushes generation metrics to CloudWatch. The worker runs
// in Lambda where nothing scrapes /metrics.
type CloudWatchMetrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.LinkMetrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a new CloudWatch sink
func NewCloudWatchMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordRun records the outcome of one generation run
func (m *CloudWatchMetrics) RecordRun(status string, duration time.Duration, entries, comparisons, candidates, written int) {
	now := m.now()
	statusDim := []types.Dimension{{Name: aws.String("Status"), Value: aws.String(status)}}

	m.put([]types.MetricDatum{
		m.datum("GenerationRuns", 1, types.StandardUnitCount, statusDim, now),
		m.datum("GenerationDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, statusDim, now),
		m.datum("EntriesLoaded", float64(entries), types.StandardUnitCount, nil, now),
		m.datum("Comparisons", float64(comparisons), types.StandardUnitCount, nil, now),
		m.datum("Candidates", float64(candidates), types.StandardUnitCount, nil, now),
		m.datum("LinksWritten", float64(written), types.StandardUnitCount, nil, now),
	})
}

// RecordBatch records one persistence batch
func (m *CloudWatchMetrics) RecordBatch(status string, size int, duration time.Duration) {
	now := m.now()
	statusDim := []types.Dimension{{Name: aws.String("Status"), Value: aws.String(status)}}

	m.put([]types.MetricDatum{
		m.datum("LinkBatches", 1, types.StandardUnitCount, statusDim, now),
		m.datum("BatchDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, statusDim, now),
		m.datum("BatchSize", float64(size), types.StandardUnitCount, nil, now),
	})
}

func (m *CloudWatchMetrics) datum(name string, value float64, unit types.StandardUnit, dims []types.Dimension, at time.Time) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(at),
	}
}

// put never fails the caller; a lost datapoint is only logged
func (m *CloudWatchMetrics) put(data []types.MetricDatum) {
	ctx, cancel := context.WithTimeout(context.Background(), cloudWatchTimeout)
	defer cancel()

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Warn("Failed to send metrics",
			zap.String("namespace", m.namespace),
			zap.Int("datapoints", len(data)),
			zap.Error(err),
		)
	}
}

// fanout forwards every measurement to each sink
type fanout []ports.LinkMetrics

func (f fanout) RecordRun(status string, duration time.Duration, entries, comparisons, candidates, written int) {
	for _, sink := range f {
		sink.RecordRun(status, duration, entries, comparisons, candidates, written)
	}
}

func (f fanout) RecordBatch(status string, size int, duration time.Duration) {
	for _, sink := range f {
		sink.RecordBatch(status, size, duration)
	}
}

// CombineMetrics merges the given sinks, skipping nil ones
func CombineMetrics(sinks ...ports.LinkMetrics) ports.LinkMetrics {
	var kept fanout
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return ports.NoopMetrics{}
	case 1:
		return kept[0]
	}
	return kept
}
