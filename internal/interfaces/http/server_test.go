package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/application/scan"
	"github.com/sawpanic/cadvi/internal/domain/market"
	"github.com/sawpanic/cadvi/internal/providers/coinmarketcap"
	"github.com/sawpanic/cadvi/internal/telemetry/metrics"
)

const fixture = "../../application/scan/testdata/listings.json"

func newTestServer(t *testing.T, source scan.Source) (*Server, *metrics.Registry) {
	t.Helper()
	p, err := pipeline.New(nil)
	require.NoError(t, err)
	svc := scan.NewService(source, market.NewNormalizer(market.DefaultUniverseConfig()), p, 0)

	registry := metrics.NewRegistry()
	srv, err := NewServer(DefaultServerConfig(), svc, registry, WithVersion("test"))
	require.NoError(t, err)
	return srv, registry
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestServerConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultServerConfig().Validate())

	bad := DefaultServerConfig()
	bad.Port = 0
	assert.Error(t, bad.Validate())

	bad = DefaultServerConfig()
	bad.RequestTimeout = 0
	assert.Error(t, bad.Validate())

	_, err := NewServer(bad, nil, nil)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	srv, registry := newTestServer(t, scan.FileSource{Path: fixture})

	rr := get(t, srv, "/api/analyze?limit=50&top=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Len(t, rr.Header().Get("X-Request-ID"), 8)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, pipeline.OutcomeOpportunities, result.Outcome)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "ALPHA", result.Candidates[0].Symbol)
	assert.Equal(t, 2, result.Eligible)

	summary := registry.Summary()
	assert.Equal(t, 1.0, summary.TotalScans)
	assert.Equal(t, 4.0, summary.Analyzed)

	// The last scan is kept in full
	rr = get(t, srv, "/api/candidates")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Len(t, result.Candidates, 2)
}

func TestAnalyze_Category(t *testing.T) {
	srv, _ := newTestServer(t, scan.FileSource{Path: fixture})

	rr := get(t, srv, "/api/analyze?category=web3")
	require.Equal(t, http.StatusOK, rr.Code)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, pipeline.OutcomeNoOpportunities, result.Outcome)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 0, result.Analyzed)
}

func TestAnalyze_BadParams(t *testing.T) {
	srv, _ := newTestServer(t, scan.FileSource{Path: fixture})

	for _, target := range []string{
		"/api/analyze?limit=abc",
		"/api/analyze?limit=-1",
		"/api/analyze?top=99999",
		"/api/analyze?category=options",
	} {
		rr := get(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, CodeBadRequest, resp.Code)
		assert.NotEqual(t, "unknown", resp.RequestID)
	}
}

func TestAnalyze_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unavailable", fmt.Errorf("%w: status 500", coinmarketcap.ErrProviderUnavailable), http.StatusServiceUnavailable, CodeProviderUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, scan.SourceFunc(func(context.Context, int) ([]market.RawListing, error) {
				return nil, tt.err
			}))

			rr := get(t, srv, "/api/analyze")
			assert.Equal(t, tt.status, rr.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestCandidatesAndExplain_BeforeScan(t *testing.T) {
	srv, _ := newTestServer(t, scan.FileSource{Path: fixture})

	rr := get(t, srv, "/api/candidates")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), CodeNoScan)

	rr = get(t, srv, "/api/explain/ALPHA")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), CodeNoScan)
}

func TestExplain(t *testing.T) {
	srv, _ := newTestServer(t, scan.FileSource{Path: fixture})
	require.NoError(t, srv.Refresh(context.Background()))

	rr := get(t, srv, "/api/explain/render")
	require.Equal(t, http.StatusOK, rr.Code)

	var explanation scan.Explanation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &explanation))
	assert.Equal(t, "RENDER", explanation.Candidate.Symbol)
	assert.False(t, explanation.Ranked)
	assert.False(t, explanation.Gate.Passed)
	assert.NotEmpty(t, explanation.Gate.FailureReasons)

	rr = get(t, srv, "/api/explain/NOPE")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), CodeUnknownSymbol)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, scan.FileSource{Path: fixture})

	rr := get(t, srv, "/api/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Nil(t, health.LastScanAt)
	assert.Empty(t, health.Breaker)

	require.NoError(t, srv.Refresh(context.Background()))
	rr = get(t, srv, "/api/health")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.NotEmpty(t, health.LastScanID)
	assert.NotNil(t, health.LastScanAt)
	assert.Equal(t, "up", health.BTCRegime)
	assert.Equal(t, 1.0, health.Metrics.TotalScans)
}

func TestMetricsAndNotFound(t *testing.T) {
	srv, _ := newTestServer(t, scan.FileSource{Path: fixture})
	get(t, srv, "/api/health")

	rr := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), CodeNotFound)

	rr = get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cadvi_http_requests_total{code="2xx",route="/api/health"} 1`)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, scan.FileSource{Path: fixture})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestWebsocket_ReceivesScans(t *testing.T) {
	srv, registry := newTestServer(t, scan.FileSource{Path: fixture})
	require.NoError(t, srv.Refresh(context.Background()))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/candidates"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The latest scan arrives first
	first := readEvent(t, conn)
	assert.Equal(t, EventScan, first.Type)
	require.NotNil(t, first.Scan)
	require.Len(t, first.Scan.Candidates, 2)
	assert.Equal(t, 1, srv.Hub().Count())
	assert.Equal(t, 1.0, registry.Summary().WSClients)

	require.NoError(t, srv.Refresh(context.Background()))
	second := readEvent(t, conn)
	require.NotNil(t, second.Scan)
	assert.NotEqual(t, first.Scan.ScanID, second.Scan.ScanID)

	srv.Hub().Close()
	assert.Eventually(t, func() bool { return srv.Hub().Count() == 0 }, time.Second, 10*time.Millisecond)
}
