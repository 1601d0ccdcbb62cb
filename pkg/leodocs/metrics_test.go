package leodocs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/leoforge/go-leodocs/internal/docxtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	m.ObserveRender("minutes.docx", 20*time.Millisecond, nil)
	m.ObserveRender("minutes.docx", 5*time.Millisecond, missingAsset("logo"))
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("minutes.docx", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("minutes.docx", "missing_asset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cache.WithLabelValues("miss")))

	expected := `
# HELP leodocs_template_cache_lookups_total Template cache lookups by outcome.
# TYPE leodocs_template_cache_lookups_total counter
leodocs_template_cache_lookups_total{outcome="hit"} 1
leodocs_template_cache_lookups_total{outcome="miss"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "leodocs_template_cache_lookups_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestPrometheusMetricsRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)
	_, err = NewPrometheusMetrics(reg)
	assert.Error(t, err)
}

func TestEngineReportsToPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	store := NewMemoryStore()
	store.Put("minutes.docx", docxtest.New(docxtest.Paragraph("{%logo}")).Bytes())
	engine := New(store, WithMetrics(m))
	defer engine.Close()

	_, err = engine.Render(context.Background(), Request{Template: "minutes.docx", Data: TemplateData{"logo": docxtest.PNG(1, 1)}})
	require.NoError(t, err)
	_, err = engine.Render(context.Background(), Request{Template: "minutes.docx"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("minutes.docx", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("minutes.docx", "missing_asset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("miss")))
}
