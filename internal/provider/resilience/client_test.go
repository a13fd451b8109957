package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/provider/resilience"
)

func fastConfig(name string) resilience.ClientConfig {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Timeout = time.Second
	cfg.InitialInterval = 5 * time.Millisecond
	cfg.MaxInterval = 20 * time.Millisecond
	cfg.Breaker.MinRequests = 100
	return cfg
}

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return req
}

func TestClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "floodwatch-test/1.0", r.UserAgent())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	cfg := fastConfig("test")
	cfg.UserAgent = "floodwatch-test/1.0"
	client := resilience.NewClient(cfg)

	resp, err := client.Do(newRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig("test-retry")
	cfg.MaxRetries = 3
	client := resilience.NewClient(cfg)

	resp, err := client.Do(newRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_ExhaustedRetriesAreUnavailable(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := fastConfig("test-exhaust")
	cfg.MaxRetries = 2
	client := resilience.NewClient(cfg)

	resp, err := client.Do(newRequest(t, server.URL))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrUnavailable)
	assert.Equal(t, int32(3), attempts.Load())

	var serverErr *resilience.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadGateway, serverErr.StatusCode)
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("test-4xx"))

	resp, err := client.Do(newRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_BreakerOpens(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := fastConfig("test-trip")
	cfg.MaxRetries = 0
	cfg.Breaker.MinRequests = 5
	cfg.Breaker.OpenTimeout = time.Minute
	client := resilience.NewClient(cfg)

	for i := 0; i < 5; i++ {
		_, err := client.Do(newRequest(t, server.URL))
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	before := attempts.Load()
	_, err := client.Do(newRequest(t, server.URL))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.ErrorIs(t, err, fault.ErrUnavailable)
	assert.Equal(t, before, attempts.Load(), "open breaker must not contact the provider")
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("test-cancel"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.ErrorIs(t, err, fault.ErrUnavailable)
}
