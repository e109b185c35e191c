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

	"resume-screening-go/internal/types"
)

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.ObserveAnalysis(types.MethodHybrid, 20*time.Millisecond)
	m.ObserveAnalysis(types.MethodHybrid, 30*time.Millisecond)
	m.ObserveEnrichment("fallback")
	m.AddClassifierFaults(3)
	m.AddClassifierFaults(0)
	m.SetModelState(true, 7)
	m.ObserveBatch(2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analysisTotal.WithLabelValues("hybrid_ai_ml")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrichmentTotal.WithLabelValues("fallback")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.classifierFaults))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelTrained))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.modelClassifiers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchItems.WithLabelValues("error")))

	m.SetModelState(false, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.modelTrained))
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.ObserveEnrichment("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "resume_screening_enrichment_total"))
}
