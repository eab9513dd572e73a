package middleware

import (
	"context"

	"github.com/fmal/impact/pkg/reactive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for impact runtimes.
const defaultTracerName = "impact"

// OTelConfig configures the OpenTelemetry instrumentation.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "impact").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global provider is used.
	TracerProvider trace.TracerProvider

	// Context returns the parent context for new spans.
	// If nil, context.Background() is used.
	Context func() context.Context

	// Filter determines which events to trace.
	// Return true to trace the event, false to skip.
	// If nil, flushes, recomputes and runs are traced.
	Filter func(ev reactive.Event) bool

	// AttributeExtractor extracts custom attributes from an event.
	// Called for each traced event.
	AttributeExtractor func(ev reactive.Event) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry instrumentation.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithParentContext sets the function returning the parent span context.
func WithParentContext(fn func() context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.Context = fn
	}
}

// WithEventFilter sets a filter function for events.
func WithEventFilter(filter func(ev reactive.Event) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ev reactive.Event) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OTelInstrumentation turns timed runtime events into spans.
type OTelInstrumentation struct {
	config OTelConfig
}

// OpenTelemetry creates an instrumentation that traces flush passes,
// computed recomputes, effect runs and observer notifications.
//
// Events are reported after the work has finished, so each span is created
// with the event's start time and ended at start+duration:
//   - "reactive.flush" with the number of runs performed
//   - "reactive.recompute" for computed derivations
//   - "reactive.run" for effects and observers
//
// Failed steps record the error and set the span status to Error.
//
// Example:
//
//	rt := reactive.NewRuntime(reactive.Config{
//	    Instrumentation: middleware.OpenTelemetry(
//	        middleware.WithTracerName("my-app"),
//	    ),
//	})
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given.
func OpenTelemetry(opts ...OTelOption) *OTelInstrumentation {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	config.tracer = tp.Tracer(config.TracerName)

	return &OTelInstrumentation{config: config}
}

// Observe implements reactive.Instrumentation.
func (o *OTelInstrumentation) Observe(ev reactive.Event) {
	name := spanName(ev.Kind)
	if name == "" {
		return
	}
	if o.config.Filter != nil && !o.config.Filter(ev) {
		return
	}

	ctx := context.Background()
	if o.config.Context != nil {
		ctx = o.config.Context()
	}

	attrs := []attribute.KeyValue{
		attribute.String("reactive.event", ev.Kind.String()),
	}
	if ev.Kind == reactive.EventFlush {
		attrs = append(attrs, attribute.Int("reactive.runs", ev.Runs))
	} else {
		attrs = append(attrs,
			attribute.Int64("reactive.node.id", int64(ev.NodeID)),
			attribute.String("reactive.node.kind", ev.Node.String()),
		)
		if ev.Name != "" {
			attrs = append(attrs, attribute.String("reactive.node.name", ev.Name))
		}
	}
	if o.config.AttributeExtractor != nil {
		attrs = append(attrs, o.config.AttributeExtractor(ev)...)
	}

	_, span := o.config.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(ev.Start),
	)

	if ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(ev.Start.Add(ev.Duration)))
}

func spanName(kind reactive.EventKind) string {
	switch kind {
	case reactive.EventFlush:
		return "reactive.flush"
	case reactive.EventRecompute:
		return "reactive.recompute"
	case reactive.EventRun:
		return "reactive.run"
	default:
		return ""
	}
}
