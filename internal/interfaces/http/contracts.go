package http

import (
	"time"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/telemetry/metrics"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes
const (
	CodeBadRequest          = "bad_request"
	CodeNotFound            = "endpoint_not_found"
	CodeNoScan              = "no_scan"
	CodeUnknownSymbol       = "unknown_symbol"
	CodeProviderUnavailable = "provider_unavailable"
	CodeTimeout             = "timeout"
	CodeInternal            = "internal_error"
)

// HealthResponse reports service liveness and the last scan
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Version   string    `json:"version"`

	LastScanID string          `json:"last_scan_id,omitempty"`
	LastScanAt *time.Time      `json:"last_scan_at,omitempty"`
	BTCRegime  string          `json:"btc_regime,omitempty"`
	Breaker    string          `json:"provider_breaker,omitempty"`
	System     SystemInfo      `json:"system"`
	Metrics    metrics.Summary `json:"metrics"`
}

// SystemInfo provides process-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

// Event types pushed to websocket clients
const (
	EventScan = "scan"
)

// Event is one websocket message
type Event struct {
	Type   string           `json:"type"`
	SentAt time.Time        `json:"sent_at"`
	Scan   *pipeline.Result `json:"scan,omitempty"`
}
