package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	eventbus "github.com/hanpama/apiform/internal/eventbus"
	events "github.com/hanpama/apiform/internal/events"
	reqid "github.com/hanpama/apiform/internal/reqid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(bus, tp.Tracer("apiform"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe records spans for bus events with tracer. Construct, lookup and
// serialize spans are children of the HTTP span of the same request.
func Subscribe(bus *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register(bus)
}

type spanKey struct {
	rid  string
	kind string
	name string
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // rid -> trace.Span
	spans     sync.Map // spanKey -> trace.Span
}

func (s *subscriber) parent(ctx context.Context, rid string) context.Context {
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) start(ctx context.Context, kind, name string, attrs ...attribute.KeyValue) {
	rid, _ := reqid.FromContext(ctx)
	_, span := s.tracer.Start(s.parent(ctx, rid), kind)
	span.SetAttributes(attrs...)
	s.spans.Store(spanKey{rid, kind, name}, span)
}

func (s *subscriber) finish(ctx context.Context, kind, name string, err error, attrs ...attribute.KeyValue) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.spans.LoadAndDelete(spanKey{rid, kind, name})
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	unsubscribers := []func(){
		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("request.id", rid),
				attribute.String("apiform.endpoint", e.Endpoint),
			)
			s.httpSpans.Store(rid, span)
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.ConstructStart) {
			s.start(ctx, "apiform.construct", e.ArgumentSet,
				attribute.String("apiform.argument_set", e.ArgumentSet))
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.ConstructFinish) {
			s.finish(ctx, "apiform.construct", e.ArgumentSet, e.Err)
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.LookupStart) {
			s.start(ctx, "apiform.lookup", e.ArgumentSet,
				attribute.String("apiform.argument_set", e.ArgumentSet),
				attribute.String("apiform.lookup.key", e.Key))
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.LookupFinish) {
			s.finish(ctx, "apiform.lookup", e.ArgumentSet, e.Err)
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.SerializeStart) {
			s.start(ctx, "apiform.serialize", e.Name,
				attribute.String("apiform.field_set", e.Name))
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.SerializeFinish) {
			s.finish(ctx, "apiform.serialize", e.Name, e.Err,
				attribute.Int("apiform.fields", e.Fields))
		}),
	}
	return func() {
		for _, u := range unsubscribers {
			u()
		}
	}
}
