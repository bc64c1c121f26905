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

func TestCollector_Counts(t *testing.T) {
	c := New()

	c.RecordAdmission("admitted")
	c.RecordAdmission("admitted")
	c.RecordAdmission("conflict")
	c.RecordTransition("complete", "api")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.admissionsTotal.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.admissionsTotal.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitionsTotal.WithLabelValues("complete", "api")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAdmission("admitted")
		c.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		c.RecordNotification("email", true)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.RecordHTTPRequest("GET", "/appointments", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/appointments",status_code="200"} 1`)
}
