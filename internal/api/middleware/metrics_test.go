package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/floodwatch/floodwatch/internal/api/middleware"
)

func collectRequestTotals(t *testing.T, reader *sdkmetric.ManualReader) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http.server.request.total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				return sum.DataPoints
			}
		}
	}
	return nil
}

func TestMetrics_Middleware_LabelsByRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := middleware.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/sessions/{id}/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id+"/snapshot", http.NoBody))
	}

	points := collectRequestTotals(t, reader)
	require.Len(t, points, 1, "session ids must not become labels")
	assert.Equal(t, int64(3), points[0].Value)

	route, ok := points[0].Attributes.Value(attribute.Key("http.route"))
	require.True(t, ok)
	assert.Equal(t, "/v1/sessions/{id}/snapshot", route.AsString())
	status, _ := points[0].Attributes.Value(attribute.Key("http.response.status_code"))
	assert.Equal(t, "202", status.AsString())
}

func TestMetrics_Middleware_ErrorAttribute(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := middleware.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/alerts", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	points := collectRequestTotals(t, reader)
	require.Len(t, points, 1)
	flag, ok := points[0].Attributes.Value(attribute.Key("error"))
	require.True(t, ok)
	assert.True(t, flag.AsBool())
	route, _ := points[0].Attributes.Value(attribute.Key("http.route"))
	assert.Equal(t, "unmatched", route.AsString())
}

func TestMetrics_Middleware_DefaultStatusCode(t *testing.T) {
	metrics, err := middleware.NewMetrics(nil)
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("response"))
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "response", w.Body.String())
}
