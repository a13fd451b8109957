package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/floodwatch/floodwatch/internal/api/middleware"
)

func setupTestTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_CreatesSpanNamedByRoute(t *testing.T) {
	sr, tp := setupTestTracer(t)

	r := chi.NewRouter()
	r.Use(middleware.Tracing(tp))
	r.Get("/v1/sessions/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, trace.SpanFromContext(r.Context()).SpanContext().IsValid())
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sessions/abc/report", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /v1/sessions/{id}/report", spans[0].Name())
	route, ok := attrValue(spans[0].Attributes(), "http.route")
	require.True(t, ok)
	assert.Equal(t, "/v1/sessions/{id}/report", route.AsString())
}

func TestTracing_UnroutedKeepsPath(t *testing.T) {
	sr, tp := setupTestTracer(t)

	middleware.Tracing(tp)(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test/path", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /test/path", spans[0].Name())
}

func TestTracing_PropagatesContext(t *testing.T) {
	sr, tp := setupTestTracer(t)

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	middleware.Tracing(tp)(okHandler).ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", spans[0].SpanContext().TraceID().String())
}

func TestTracing_RecordsStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantError bool
	}{
		{"not found", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, tp := setupTestTracer(t)
			handler := middleware.Tracing(tp)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

			spans := sr.Ended()
			require.Len(t, spans, 1)
			code, ok := attrValue(spans[0].Attributes(), "http.response.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.status), code.AsInt64())
			if tt.wantError {
				assert.Equal(t, codes.Error, spans[0].Status().Code)
				assert.Equal(t, "Internal Server Error", spans[0].Status().Description)
			} else {
				assert.Equal(t, codes.Unset, spans[0].Status().Code)
			}
		})
	}
}

func TestTracing_IncludesRequestID(t *testing.T) {
	sr, tp := setupTestTracer(t)

	handler := middleware.RequestID(middleware.Tracing(tp)(okHandler))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	id, ok := attrValue(spans[0].Attributes(), "request.id")
	require.True(t, ok)
	assert.Contains(t, id.AsString(), "req_")
}
