// Package metrics provides an OpenTelemetry-backed event sink for deque
// instrumentation. It is entirely optional: the deque accepts any
// EventSink, and nothing else in this module imports OpenTelemetry.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/ajrodado/workcrew/pkg/deque"
)

const meterName = "github.com/ajrodado/workcrew/pkg/metrics"

// DequeSink implements deque.EventSink by counting pushes, pops and
// closes and tracking the current depth. The deque name is attached as an
// attribute so one meter can serve many deques.
type DequeSink struct {
	pushes metric.Int64Counter
	pops   metric.Int64Counter
	closes metric.Int64Counter
	depth  metric.Int64UpDownCounter

	byDeque metric.MeasurementOption
	byEnd   [2]metric.MeasurementOption
}

// NewDequeSink creates a sink recording through meter, tagging every
// measurement with the given deque name.
func NewDequeSink(meter metric.Meter, name string) (*DequeSink, error) {
	s := &DequeSink{
		byDeque: metric.WithAttributes(attribute.String("deque", name)),
	}
	for _, end := range []deque.End{deque.Front, deque.Back} {
		s.byEnd[end] = metric.WithAttributes(
			attribute.String("deque", name),
			attribute.String("end", end.String()),
		)
	}

	var err error
	if s.pushes, err = meter.Int64Counter("deque.pushes",
		metric.WithDescription("Elements pushed onto the deque")); err != nil {
		return nil, fmt.Errorf("create push counter: %w", err)
	}
	if s.pops, err = meter.Int64Counter("deque.pops",
		metric.WithDescription("Elements popped from the deque")); err != nil {
		return nil, fmt.Errorf("create pop counter: %w", err)
	}
	if s.closes, err = meter.Int64Counter("deque.closes",
		metric.WithDescription("Deque close transitions")); err != nil {
		return nil, fmt.Errorf("create close counter: %w", err)
	}
	if s.depth, err = meter.Int64UpDownCounter("deque.depth",
		metric.WithDescription("Current number of elements in the deque")); err != nil {
		return nil, fmt.Errorf("create depth counter: %w", err)
	}
	return s, nil
}

// NewDequeSinkDefault creates a sink on the globally registered meter
// provider. Safe without any provider configured: the global default is a
// no-op.
func NewDequeSinkDefault(name string) *DequeSink {
	s, err := NewDequeSink(otel.GetMeterProvider().Meter(meterName), name)
	if err != nil {
		// The registered provider rejected an instrument; fall back to a
		// sink that drops everything rather than failing the caller.
		s, _ = NewDequeSink(noop.NewMeterProvider().Meter(meterName), name)
	}
	return s
}

// OnPush implements deque.EventSink
func (s *DequeSink) OnPush(end deque.End) {
	ctx := context.Background()
	s.pushes.Add(ctx, 1, s.byEnd[end])
	s.depth.Add(ctx, 1, s.byDeque)
}

// OnPop implements deque.EventSink
func (s *DequeSink) OnPop(end deque.End) {
	ctx := context.Background()
	s.pops.Add(ctx, 1, s.byEnd[end])
	s.depth.Add(ctx, -1, s.byDeque)
}

// OnClose implements deque.EventSink
func (s *DequeSink) OnClose() {
	s.closes.Add(context.Background(), 1, s.byDeque)
}

// OnClear implements deque.EventSink. Cleared elements leave the deque
// without a pop, so only the depth is adjusted.
func (s *DequeSink) OnClear(removed int) {
	s.depth.Add(context.Background(), -int64(removed), s.byDeque)
}
