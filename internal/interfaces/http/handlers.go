package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/application/scan"
	"github.com/sawpanic/cadvi/internal/domain/market"
	"github.com/sawpanic/cadvi/internal/providers/coinmarketcap"
)

const maxListingLimit = 5000

// writeJSON writes JSON response with proper error handling
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// queryInt parses an optional non-negative integer parameter
func queryInt(r *http.Request, name string, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > max {
		return 0, errors.New(name + " must be an integer in [0," + strconv.Itoa(max) + "]")
	}
	return n, nil
}

func queryCategory(r *http.Request) (market.Category, error) {
	raw := r.URL.Query().Get("category")
	category, ok := market.ParseCategory(raw)
	if !ok {
		return "", errors.New("category must be one of all, spot, futures, web3")
	}
	return category, nil
}

// truncated returns a shallow copy holding at most top candidates
func truncated(result *pipeline.Result, top int) *pipeline.Result {
	if top <= 0 || len(result.Candidates) <= top {
		return result
	}
	out := *result
	out.Candidates = result.Candidates[:top]
	return &out
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, r, http.StatusNotFound, CodeNotFound, "The requested endpoint does not exist")
}

// handleAnalyze runs a fresh scan: ?limit=&top=&category=
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", maxListingLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	top, err := queryInt(r, "top", maxListingLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	category, err := queryCategory(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	result, err := s.scanner.Scan(r.Context(), category, limit)
	if err != nil {
		status, code := classify(err)
		log.Error().
			Str("request_id", RequestID(r.Context())).
			Err(err).
			Msg("Analyze failed")
		writeError(w, r, status, code, err.Error())
		return
	}

	s.publish(result)
	writeJSON(w, http.StatusOK, truncated(result, top))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, coinmarketcap.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, CodeProviderUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// handleCandidates serves the last scan without fetching: ?top=
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", maxListingLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	latest := s.scanner.Latest()
	if latest == nil {
		writeError(w, r, http.StatusNotFound, CodeNoScan, scan.ErrNoScan.Error())
		return
	}
	writeJSON(w, http.StatusOK, truncated(latest, top))
}

// handleExplain returns the gate breakdown for one symbol: ?category=
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	category, err := queryCategory(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	explanation, err := s.scanner.Explain(mux.Vars(r)["symbol"], category)
	switch {
	case errors.Is(err, scan.ErrNoScan):
		writeError(w, r, http.StatusNotFound, CodeNoScan, err.Error())
	case errors.Is(err, scan.ErrUnknownSymbol):
		writeError(w, r, http.StatusNotFound, CodeUnknownSymbol, err.Error())
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, CodeInternal, err.Error())
	default:
		writeJSON(w, http.StatusOK, explanation)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Version:   s.version,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemAlloc:      mem.Alloc,
			NumGC:         mem.NumGC,
		},
		Metrics: s.metrics.Summary(),
	}

	if latest := s.scanner.Latest(); latest != nil {
		at := latest.GeneratedAt
		resp.LastScanID = latest.ScanID
		resp.LastScanAt = &at
		resp.BTCRegime = latest.BTCRegime.String()
	}
	if state, ok := s.scanner.BreakerState(); ok {
		resp.Breaker = state
		if state != "closed" {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var initial []byte
	if latest := s.scanner.Latest(); latest != nil {
		data, err := json.Marshal(Event{Type: EventScan, SentAt: time.Now().UTC(), Scan: latest})
		if err == nil {
			initial = data
		}
	}
	s.hub.ServeWS(w, r, initial)
}
