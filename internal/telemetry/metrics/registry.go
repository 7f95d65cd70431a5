package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cadvi/internal/telemetry/latency"
)

// Step results
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Registry holds all Prometheus metrics for cadvi. Each registry owns its
// own prometheus.Registry so several can coexist in one process.
type Registry struct {
	reg   *prometheus.Registry
	steps *latency.Tracker

	// Pipeline
	StepDuration  *prometheus.HistogramVec
	PipelineSteps *prometheus.CounterVec
	TotalScans    prometheus.Counter
	Analyzed      prometheus.Gauge
	Eligible      prometheus.Gauge
	WashSuspects  prometheus.Gauge
	BTCRegime     prometheus.Gauge

	// Provider
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec

	// HTTP surface
	HTTPRequests *prometheus.CounterVec
	WSClients    prometheus.Gauge

	// Simulator
	SimulationRuns     prometheus.Counter
	ProfitableFraction prometheus.Gauge
}

// NewRegistry creates and registers every metric
func NewRegistry() *Registry {
	r := &Registry{
		reg:   prometheus.NewRegistry(),
		steps: latency.NewTracker(latency.DefaultWindow),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cadvi_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"step", "result"},
		),
		PipelineSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadvi_pipeline_steps_total",
				Help: "Total number of pipeline steps executed",
			},
			[]string{"step", "result"},
		),
		TotalScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadvi_scans_total",
			Help: "Total number of completed scans",
		}),
		Analyzed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cadvi_scan_analyzed",
			Help: "Snapshots analyzed by the last scan",
		}),
		Eligible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cadvi_scan_eligible",
			Help: "Candidates passing the entry gates in the last scan",
		}),
		WashSuspects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cadvi_scan_wash_suspects",
			Help: "Coins flagged as wash-trading suspects in the last scan",
		}),
		BTCRegime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cadvi_btc_regime",
			Help: "BTC reference regime (0=unknown, 1=up, 2=flat, 3=down)",
		}),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadvi_provider_requests_total",
				Help: "Market-data provider requests by outcome",
			},
			[]string{"provider", "status"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cadvi_provider_latency_seconds",
				Help:    "Market-data provider request latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cadvi_provider_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadvi_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cadvi_ws_clients",
			Help: "Connected websocket clients",
		}),

		SimulationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadvi_simulation_runs_total",
			Help: "Monte Carlo runs executed",
		}),
		ProfitableFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cadvi_simulation_profitable_fraction",
			Help: "Share of profitable runs in the last synthetic simulation",
		}),
	}

	r.reg.MustRegister(
		r.StepDuration,
		r.PipelineSteps,
		r.TotalScans,
		r.Analyzed,
		r.Eligible,
		r.WashSuspects,
		r.BTCRegime,
		r.ProviderRequests,
		r.ProviderLatency,
		r.BreakerState,
		r.HTTPRequests,
		r.WSClients,
		r.SimulationRuns,
		r.ProfitableFraction,
	)
	return r
}

// Handler serves this registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveStep records one pipeline step
func (r *Registry) ObserveStep(step string, d time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	r.StepDuration.WithLabelValues(step, result).Observe(d.Seconds())
	r.PipelineSteps.WithLabelValues(step, result).Inc()
	r.steps.Record(step, d)

	log.Debug().
		Str("step", step).
		Str("result", result).
		Dur("duration", d).
		Msg("Pipeline step observed")
}

// ObserveScan records the counts of a finished scan
func (r *Registry) ObserveScan(analyzed, eligible, washSuspects int) {
	r.TotalScans.Inc()
	r.Analyzed.Set(float64(analyzed))
	r.Eligible.Set(float64(eligible))
	r.WashSuspects.Set(float64(washSuspects))
}

// SetBTCRegime records the regime ordinal
func (r *Registry) SetBTCRegime(ordinal int) {
	r.BTCRegime.Set(float64(ordinal))
}

// ObserveRequest records one provider call
func (r *Registry) ObserveRequest(provider, status string, d time.Duration) {
	r.ProviderRequests.WithLabelValues(provider, status).Inc()
	r.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveBreakerState records a circuit breaker transition
func (r *Registry) ObserveBreakerState(provider string, state int) {
	r.BreakerState.WithLabelValues(provider).Set(float64(state))
}

// ObserveHTTP counts an HTTP response
func (r *Registry) ObserveHTTP(route string, code int) {
	r.HTTPRequests.WithLabelValues(route, statusLabel(code)).Inc()
}

// ObserveSimulation records a finished Monte Carlo batch
func (r *Registry) ObserveSimulation(runs int, profitableFraction float64) {
	r.SimulationRuns.Add(float64(runs))
	r.ProfitableFraction.Set(profitableFraction)
}

// Summary is a point-in-time read of the headline metrics
type Summary struct {
	TotalScans   float64 `json:"total_scans"`
	Analyzed     float64 `json:"last_analyzed"`
	Eligible     float64 `json:"last_eligible"`
	WashSuspects float64 `json:"last_wash_suspects"`
	WSClients    float64 `json:"ws_clients"`

	Steps []latency.Stats `json:"steps,omitempty"`
}

// Summary reads the current values back from the collectors
func (r *Registry) Summary() Summary {
	return Summary{
		TotalScans:   value(r.TotalScans),
		Analyzed:     value(r.Analyzed),
		Eligible:     value(r.Eligible),
		WashSuspects: value(r.WashSuspects),
		WSClients:    value(r.WSClients),
		Steps:        r.steps.Stats(),
	}
}

func value(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return 0
	}
	switch {
	case out.Counter != nil:
		return out.GetCounter().GetValue()
	case out.Gauge != nil:
		return out.GetGauge().GetValue()
	default:
		return 0
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
