package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndServe(t *testing.T) {
	m := NewMetrics()
	m.ObserveUpload("image", "success")
	m.ObserveUpload("image", "success")
	m.ObserveSaga("upload", "committed")
	m.ObserveRequest("GET", "/api/v1/health", "200", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("image", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sagas.WithLabelValues("upload", "committed")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "beamdash_media_uploads_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpload("video", "failure")
		m.ObserveSaga("reorder", "rolled_back")
		m.ObserveRequest("GET", "/", "200", 0)
	})
}

func TestInitLogger(t *testing.T) {
	logger, err := InitLogger(true, "debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = InitLogger(false, "loud")
	assert.Error(t, err)
}
