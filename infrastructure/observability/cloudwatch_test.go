package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestCloudWatchMetrics_RecordRun(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := NewCloudWatchMetrics("KBGraph", fake, zap.NewNop())

	m.RecordRun("success", 1500*time.Millisecond, 10, 45, 8, 8)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "KBGraph", aws.ToString(in.Namespace))

	values := map[string]float64{}
	for _, d := range in.MetricData {
		values[aws.ToString(d.MetricName)] = aws.ToFloat64(d.Value)
	}
	assert.Equal(t, 1.0, values["GenerationRuns"])
	assert.Equal(t, 1500.0, values["GenerationDuration"])
	assert.Equal(t, 45.0, values["Comparisons"])
	assert.Equal(t, 8.0, values["LinksWritten"])
	assert.Equal(t, "success", aws.ToString(in.MetricData[0].Dimensions[0].Value))
}

func TestCloudWatchMetrics_SwallowsErrors(t *testing.T) {
	fake := &fakeCloudWatch{err: errors.New("throttled")}
	m := NewCloudWatchMetrics("KBGraph", fake, zap.NewNop())

	assert.NotPanics(t, func() { m.RecordBatch("failure", 100, time.Second) })
	require.Len(t, fake.inputs, 1)
	assert.Len(t, fake.inputs[0].MetricData, 3)
}

func TestCombineMetrics(t *testing.T) {
	assert.IsType(t, ports.NoopMetrics{}, CombineMetrics())
	assert.IsType(t, ports.NoopMetrics{}, CombineMetrics(nil))

	collector := NewCollector("combine_test")
	assert.Same(t, collector, CombineMetrics(nil, collector))

	fake := &fakeCloudWatch{}
	combined := CombineMetrics(collector, NewCloudWatchMetrics("KBGraph", fake, zap.NewNop()))
	combined.RecordRun("success", time.Second, 2, 1, 1, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Runs.WithLabelValues("success")))
	assert.Len(t, fake.inputs, 1)
}
