package service

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceDatasetLoad(t *testing.T) {
	m := NewMetricsService()

	m.ObserveDatasetLoad("file:public/ppdb.json", 120, 3, 20*time.Millisecond, nil)
	m.ObserveDatasetLoad("file:public/ppdb.json", 0, 0, time.Millisecond, errors.New("missing"))

	assert.Equal(t, float64(120), testutil.ToFloat64(m.datasetRecords))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.datasetDropped))
	assert.Equal(t, 2, testutil.CollectAndCount(m.datasetLoad))
}

func TestMetricsServiceSessionsAndViews(t *testing.T) {
	m := NewMetricsService()

	m.RecordSessionAction(SessionActionAll, "jenjang")
	m.RecordSessionAction(SessionActionAll, "jenjang")
	m.RecordSessionAction(SessionActionNone, "jalur")
	m.ObserveView(42, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.sessionActions.WithLabelValues("all", "jenjang")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sessionActions.WithLabelValues("none", "jalur")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "ppdb_view_records")
	assert.Contains(t, names, "goroutines_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.ObserveDatasetLoad("x", 1, 0, time.Millisecond, nil)
		m.ObserveView(1, time.Millisecond)
		m.RecordSessionAction("all", "jalur")
	})
	assert.Nil(t, m.Registry())
}
