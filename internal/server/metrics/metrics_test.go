package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveUpload("ok")
	m.ObserveUpload("ok")
	m.ObserveUpload("FileTooLarge")
	m.ObserveImport("sheet", "auth_required")
	m.ObserveOAuth("exchange", "InvalidGrant")
	m.ObserveSwept(3)
	m.ObserveSwept(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Uploads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("FileTooLarge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Imports.WithLabelValues("sheet", "auth_required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OAuth.WithLabelValues("exchange", "InvalidGrant")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Swept))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpload("ok")
		m.ObserveImport("file", "imported")
		m.ObserveOAuth("logout", "ok")
		m.ObserveSwept(1)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveImport("file", "imported")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dataimport_imports_total{outcome="imported",source="file"} 1`)
}
