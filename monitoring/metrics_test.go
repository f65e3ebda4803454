package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIndependentPerInstance(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordAppointmentBooked()
	a.RecordAppointmentBooked()
	b.RecordSerialConflict()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.appointmentsBooked))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.appointmentsBooked))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.serialConflicts))
}

func TestHandlerExposesRecordedSeries(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/appointments", "200", 15*time.Millisecond)
	m.RecordAuthAttempt("login", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{endpoint="/appointments",method="GET",status_code="200"} 1`)
	assert.Contains(t, string(body), `auth_attempts_total{method="login",status="failure"} 1`)
}
