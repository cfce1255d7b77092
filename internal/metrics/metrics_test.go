package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordActivation(t *testing.T) {
	m := New()
	m.RecordActivation(Activation{Created: 2, Failed: 1, Skipped: 3, Duration: time.Millisecond})
	m.RecordActivation(Activation{Denied: true})
	m.RecordDestroyError()
	m.SetLive(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activations.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activations.WithLabelValues("denied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.surfacesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.createFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rulesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.destroyErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.liveSurfaces))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordActivation(Activation{Created: 1})
	m.RecordDestroyError()
	m.SetLive(3)
	assert.Nil(t, m.Registry())
}

func TestHandlerServesCollectors(t *testing.T) {
	m := New()
	m.SetLive(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "screenmask_live_surfaces 4"), body)
}
