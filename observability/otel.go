package observability

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// InstrumentationScope is the meter name used for IOU instruments.
const InstrumentationScope = "github.com/xraph/iou"

var _ MetricFactory = (*OTelFactory)(nil)

// OTelFactory is a MetricFactory backed by an OpenTelemetry meter.
// Instruments are created once per name and reused.
type OTelFactory struct {
	meter  metric.Meter
	logger *slog.Logger

	counters   sync.Map // string -> *otelCounter
	histograms sync.Map // string -> *otelHistogram
}

// NewOTelFactory creates a factory on provider. A nil provider uses the
// global meter provider.
func NewOTelFactory(provider metric.MeterProvider, logger *slog.Logger) *OTelFactory {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OTelFactory{
		meter:  provider.Meter(InstrumentationScope),
		logger: logger,
	}
}

// Counter implements MetricFactory. If the instrument cannot be created the
// failure is logged and a no-op counter is returned.
func (f *OTelFactory) Counter(name string) Counter {
	if c, ok := f.counters.Load(name); ok {
		return c.(*otelCounter) //nolint:forcetypeassert // only otelCounter is stored
	}

	inst, err := f.meter.Float64Counter(name)
	if err != nil {
		f.logger.Warn("observability: create counter failed", "name", name, "error", err)
		inst = noop.Float64Counter{}
	}
	actual, _ := f.counters.LoadOrStore(name, &otelCounter{inst: inst})
	return actual.(*otelCounter) //nolint:forcetypeassert // only otelCounter is stored
}

// Histogram implements MetricFactory. If the instrument cannot be created
// the failure is logged and a no-op histogram is returned.
func (f *OTelFactory) Histogram(name string) Histogram {
	if h, ok := f.histograms.Load(name); ok {
		return h.(*otelHistogram) //nolint:forcetypeassert // only otelHistogram is stored
	}

	inst, err := f.meter.Float64Histogram(name)
	if err != nil {
		f.logger.Warn("observability: create histogram failed", "name", name, "error", err)
		inst = noop.Float64Histogram{}
	}
	actual, _ := f.histograms.LoadOrStore(name, &otelHistogram{inst: inst})
	return actual.(*otelHistogram) //nolint:forcetypeassert // only otelHistogram is stored
}

type otelCounter struct{ inst metric.Float64Counter }

func (c *otelCounter) Inc()          { c.inst.Add(context.Background(), 1) }
func (c *otelCounter) Add(v float64) { c.inst.Add(context.Background(), v) }

type otelHistogram struct{ inst metric.Float64Histogram }

func (h *otelHistogram) Observe(v float64) { h.inst.Record(context.Background(), v) }
