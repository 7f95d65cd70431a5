package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveScan(t *testing.T) {
	r := NewRegistry()

	r.ObserveScan(120, 4, 2)
	r.ObserveScan(80, 3, 1)

	s := r.Summary()
	assert.Equal(t, 2.0, s.TotalScans)
	assert.Equal(t, 80.0, s.Analyzed)
	assert.Equal(t, 3.0, s.Eligible)
	assert.Equal(t, 1.0, s.WashSuspects)
}

func TestRegistry_ObserveStep(t *testing.T) {
	r := NewRegistry()
	r.ObserveStep("Score", 3*time.Millisecond, nil)
	r.ObserveStep("Score", time.Millisecond, errors.New("boom"))

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "cadvi_pipeline_steps_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" {
					counts[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{ResultSuccess: 1, ResultError: 1}, counts)

	steps := r.Summary().Steps
	require.Len(t, steps, 1)
	assert.Equal(t, "Score", steps[0].Step)
	assert.Equal(t, 2, steps[0].Count)
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObserveHTTP("/api/health", 200)
	r.ObserveRequest("coinmarketcap", "ok", 150*time.Millisecond)
	r.ObserveSimulation(100, 0.82)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cadvi_http_requests_total{code="2xx",route="/api/health"} 1`)
	assert.Contains(t, body, "cadvi_simulation_profitable_fraction 0.82")
	assert.Contains(t, body, `cadvi_provider_requests_total{provider="coinmarketcap",status="ok"} 1`)
}

func TestRegistry_Independent(t *testing.T) {
	// Separate registries must not collide on registration
	a, b := NewRegistry(), NewRegistry()
	a.ObserveScan(1, 1, 0)
	assert.Equal(t, 1.0, a.Summary().TotalScans)
	assert.Zero(t, b.Summary().TotalScans)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(204))
	assert.Equal(t, "3xx", statusLabel(304))
	assert.Equal(t, "4xx", statusLabel(404))
	assert.Equal(t, "5xx", statusLabel(503))
}
