package ratelimiter

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Namespace: "hrailab"})
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(metrics.AcquiredTotal, metrics.RejectedTotal, metrics.WaitSeconds)

	rl, err := New(1, WithClock(newFakeClock()), WithModel("gemini-2.5-pro"), WithMetrics(metrics))
	require.NoError(t, err)

	require.True(t, rl.TryAcquire())
	require.False(t, rl.TryAcquire())
	require.False(t, rl.TryAcquire())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AcquiredTotal.WithLabelValues("gemini-2.5-pro")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RejectedTotal.WithLabelValues("gemini-2.5-pro")))

	metrics.ObserveWait("gemini-2.5-pro", 3*time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.WaitSeconds, "hrailab_ratelimiter_wait_seconds"))
}

func TestRegistryCollector(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistryWithOpts(DefaultQuotaTable(), RegistryOpts{Clock: clock})

	pro, err := registry.Get("gemini-2.5-pro")
	require.NoError(t, err)
	require.True(t, pro.TryAcquire())
	_, err = registry.Get("gemini-2.0-flash-lite")
	require.NoError(t, err)

	collector := NewRegistryCollector(registry, "hrailab")
	expected := `
# HELP hrailab_ratelimiter_available_tokens Tokens currently available in the model's bucket.
# TYPE hrailab_ratelimiter_available_tokens gauge
hrailab_ratelimiter_available_tokens{model="gemini-2.0-flash-lite"} 30
hrailab_ratelimiter_available_tokens{model="gemini-2.5-pro"} 1
# HELP hrailab_ratelimiter_capacity Maximum number of tokens in the model's bucket.
# TYPE hrailab_ratelimiter_capacity gauge
hrailab_ratelimiter_capacity{model="gemini-2.0-flash-lite"} 30
hrailab_ratelimiter_capacity{model="gemini-2.5-pro"} 2
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected)))
}
