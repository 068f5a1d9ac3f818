package metrics

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

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveTransition("publish", "ok")
	c.ObserveTransition("publish", "ok")
	c.ObserveTransition("revert", "conflict")
	c.AddExcludedEvents(42, 3)
	c.ObserveCacheLookup(true)
	c.ObserveExpansion(5*time.Millisecond, 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transitions.WithLabelValues("publish", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("revert", "conflict")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.excludedEvents.WithLabelValues("42")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.occurrences))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveTransition("publish", "ok")
		c.ObserveExpansion(time.Second, 1)
		c.AddExcludedEvents(1, 1)
		c.ObserveCacheLookup(false)
		c.ObserveHTTP(200, time.Millisecond)
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTP(http.StatusOK, 10*time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `almanac_http_requests_total{status_code="200"} 1`)
}
