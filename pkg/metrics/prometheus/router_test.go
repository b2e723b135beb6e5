package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newRouterMetrics(reg)

	m.RecordOperation("get_catalog", "FRIENDLY_USER_1", 5*time.Millisecond, nil)
	m.RecordOperation("get_catalog", "FRIENDLY_USER_1", time.Millisecond, errors.New("boom"))
	m.RecordOperation("read", "FRIENDLY_USER_2", time.Millisecond, nil)
	m.RecordSuppressedError("get_catalog_registrations", "USERNAME")
	m.SetMountedSources(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("get_catalog", "FRIENDLY_USER_1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("get_catalog", "FRIENDLY_USER_1", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("read", "FRIENDLY_USER_2", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressedErrors.WithLabelValues("get_catalog_registrations", "USERNAME")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.mountedSources))

	count, err := testutil.GatherAndCount(reg, "playground_operation_duration_milliseconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewRouterMetricsDisabled(t *testing.T) {
	// The global registry is never initialized in this package's tests.
	m := NewRouterMetrics()
	require.NotNil(t, m)

	_, isPrometheus := m.(*routerMetrics)
	assert.False(t, isPrometheus)
}
