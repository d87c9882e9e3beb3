package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/apiform/internal/eventbus"
	events "github.com/hanpama/apiform/internal/events"
	reqid "github.com/hanpama/apiform/internal/reqid"
)

func TestSubscribe_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := eventbus.New()
	unsubscribe := Subscribe(bus, tp.Tracer("test"))

	ctx, _ := reqid.NewContext(context.Background())
	req := httptest.NewRequest("GET", "/users/1", nil)
	eventbus.Publish(ctx, bus, events.HTTPStart{Request: req})
	eventbus.Publish(ctx, bus, events.ConstructStart{ArgumentSet: "UserLookup"})
	eventbus.Publish(ctx, bus, events.ConstructFinish{ArgumentSet: "UserLookup"})
	eventbus.Publish(ctx, bus, events.SerializeStart{Name: "user"})
	eventbus.Publish(ctx, bus, events.SerializeFinish{Name: "user", Err: errors.New("boom")})
	eventbus.Publish(ctx, bus, events.HTTPFinish{Request: req, Status: 500})

	spans := rec.Ended()
	require.Len(t, spans, 3)
	require.Equal(t, "apiform.construct", spans[0].Name())
	require.Equal(t, "apiform.serialize", spans[1].Name())
	require.Equal(t, codes.Error, spans[1].Status().Code)
	require.Equal(t, "http.request", spans[2].Name())
	require.Equal(t, spans[2].SpanContext().SpanID(), spans[0].Parent().SpanID())

	unsubscribe()
	eventbus.Publish(ctx, bus, events.ConstructStart{ArgumentSet: "UserLookup"})
	eventbus.Publish(ctx, bus, events.ConstructFinish{ArgumentSet: "UserLookup"})
	require.Len(t, rec.Ended(), 3)
}

func TestSetup_NoEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), eventbus.New(), "", "apiform")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
