package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndServe(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())
	m.IncCache("hit")
	m.IncCache("hit")
	m.IncCache("miss")
	m.ObserveGraphWrite("entities", 12, 30*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.graphRows.WithLabelValues("entities")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kg_cache_requests_total")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncCache("hit")
	m.ObserveFlush(time.Second)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
