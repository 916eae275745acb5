package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/iou"
	"github.com/xraph/iou/observability"
	"github.com/xraph/iou/store/memory"
	"github.com/xraph/iou/types"
)

func newTestFactory(t *testing.T) (*observability.OTelFactory, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return observability.NewOTelFactory(mp, nil), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func counterValue(t *testing.T, m metricdata.Metrics) float64 {
	t.Helper()

	data, ok := m.Data.(metricdata.Sum[float64])
	require.True(t, ok, "expected Sum[float64], got %T", m.Data)
	var total float64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}

func histogramSum(t *testing.T, m metricdata.Metrics) (uint64, float64) {
	t.Helper()

	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram[float64], got %T", m.Data)
	var (
		count uint64
		sum   float64
	)
	for _, dp := range data.DataPoints {
		count += dp.Count
		sum += dp.Sum
	}
	return count, sum
}

func TestMetricsExtensionRecordsLedgerActivity(t *testing.T) {
	ctx := context.Background()
	factory, reader := newTestFactory(t)

	l := iou.New(memory.New(), iou.WithPlugin(observability.NewMetricsExtension(factory)))
	require.NoError(t, l.Start(ctx))

	c, err := l.Issue(ctx, "alice", 100, "bob", 0)
	require.NoError(t, err)
	require.NoError(t, c.Deposit(ctx, "carol", 7))
	require.NoError(t, c.Approve(ctx, "alice", "carol", 10))
	require.NoError(t, c.PayDebt(ctx, "alice", 60))
	require.NoError(t, c.PayDebt(ctx, "alice", 40))
	require.Error(t, c.PayDebt(ctx, "alice", 1))

	metrics := collect(t, reader)

	assert.InDelta(t, 1, counterValue(t, metrics["iou.issued"]), 0)
	assert.InDelta(t, 1, counterValue(t, metrics["iou.mints"]), 0)
	assert.InDelta(t, 2, counterValue(t, metrics["iou.transfers"]), 0)
	assert.InDelta(t, 1, counterValue(t, metrics["iou.deposits"]), 0)
	assert.InDelta(t, 1, counterValue(t, metrics["iou.approvals"]), 0)
	assert.InDelta(t, 2, counterValue(t, metrics["iou.debt.repayments"]), 0)
	assert.InDelta(t, 1, counterValue(t, metrics["iou.debt.settled"]), 0)
	assert.InDelta(t, 1, counterValue(t, metrics["iou.operations.rejected"]), 0)

	count, sum := histogramSum(t, metrics["iou.debt.repayment.amount"])
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 100, sum, 0)

	count, sum = histogramSum(t, metrics["iou.issued.face_value"])
	assert.Equal(t, uint64(1), count)
	assert.InDelta(t, float64(types.Amount(100)), sum, 0)
}

func TestOTelFactoryReusesInstruments(t *testing.T) {
	factory, reader := newTestFactory(t)

	factory.Counter("iou.test").Inc()
	factory.Counter("iou.test").Add(2)
	assert.Same(t, factory.Histogram("iou.h"), factory.Histogram("iou.h"))

	metrics := collect(t, reader)
	assert.InDelta(t, 3, counterValue(t, metrics["iou.test"]), 0)
}
