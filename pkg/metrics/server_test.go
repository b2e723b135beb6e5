package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRouterMetrics(t *testing.T) {
	m := NewNoopRouterMetrics()
	m.RecordOperation("read", "OWNER", time.Second, nil)
	m.RecordSuppressedError("get_catalog_registrations", "OWNER")
	m.SetMountedSources(2)
}

func TestHandlerIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(9191).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://&lt;host&gt;:9191/metrics")

	rec = httptest.NewRecorder()
	NewHandler(9191).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerMetrics(t *testing.T) {
	if !IsEnabled() {
		rec := httptest.NewRecorder()
		NewHandler(9090).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}

	InitRegistry()
	require.True(t, IsEnabled())

	rec := httptest.NewRecorder()
	NewHandler(9090).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerStopIdempotent(t *testing.T) {
	s := NewServer(ServerConfig{})
	assert.Equal(t, 9090, s.Port())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
