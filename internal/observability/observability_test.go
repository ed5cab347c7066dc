package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "postboard-test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestTraceRepositoryMethod_RecordsAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	previous := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = previous })

	_, span := TraceRepositoryMethod(context.Background(), "List", "posts")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "repository.List", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "posts", attrs["db.table"])
	assert.Equal(t, "postgresql", attrs["db.system"])
}

func TestTrackQuery_ObservesLatency(t *testing.T) {
	done := TrackQuery("select_test", "posts")
	done()
	assert.Equal(t, 1, testutil.CollectAndCount(DatabaseQueryLatency, "postboard_database_query_latency_seconds"))
}

func TestPostEventsPublished_Counts(t *testing.T) {
	counter := PostEventsPublished.WithLabelValues("post_created", "ok")
	before := testutil.ToFloat64(counter)
	counter.Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0.0001)
}
