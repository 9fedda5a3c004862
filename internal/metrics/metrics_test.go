package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.EntryCreated("BUILDING_TRANSACTION")
	m.EntryCreated("BUILDING_TRANSACTION")
	m.EntryDeleted("PORTFOLIO_SETTINGS")
	m.PublishError()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.entriesCreated.WithLabelValues("BUILDING_TRANSACTION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entriesDeleted.WithLabelValues("PORTFOLIO_SETTINGS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishErrors))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EntryCreated("x")
		m.EntryDeleted("x")
		m.HTTPRequest("/x", 200, time.Millisecond)
		m.ObserveSummary("building", time.Now())
		m.PublishError()
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.HTTPRequest("/api/portfolio/summary", http.StatusOK, 5*time.Millisecond)
	m.ObserveSummary("portfolio", time.Now())

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	require.NoError(t, err)
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{route="/api/portfolio/summary",status="200"} 1`)
	assert.Contains(t, body, "summary_compute_duration_seconds_count{scope=\"portfolio\"} 1")
}

func TestRegistriesAreIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
