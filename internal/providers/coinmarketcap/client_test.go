package coinmarketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

const listingsJSON = `{
  "status": {"error_code": 0, "error_message": null},
  "data": [
    {
      "id": 5690, "name": "Render", "symbol": "RENDER", "slug": "render",
      "tags": ["ai-big-data"], "platform": null,
      "quote": {"USD": {"price": 7.32, "volume_24h": 450000000, "volume_change_24h": 156,
        "percent_change_1h": 0.4, "percent_change_24h": 12.4, "percent_change_7d": 24.8,
        "market_cap": 3800000000}}
    },
    {
      "id": 9999, "name": "Thin", "symbol": "THIN", "slug": "thin",
      "platform": {"name": "Ethereum", "token_address": "0xdead"},
      "quote": {"USD": {"price": 0.01, "volume_24h": 5000, "market_cap": 2000000}}
    }
  ]
}`

func testConfig(url string) Config {
	c := DefaultConfig()
	c.BaseURL = url
	c.APIKey = "test-key"
	c.RPS = 1000
	c.Burst = 10
	c.MaxRetries = 0
	c.Timeout = 2 * time.Second
	return c
}

type recorder struct {
	statuses []string
	states   []int
}

func (r *recorder) ObserveRequest(_, status string, _ time.Duration) {
	r.statuses = append(r.statuses, status)
}

func (r *recorder) ObserveBreakerState(_ string, state int) {
	r.states = append(r.states, state)
}

func TestListings_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, listingsPath, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "USD", r.URL.Query().Get("convert"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listingsJSON))
	}))
	defer srv.Close()

	rec := &recorder{}
	client, err := NewClient(testConfig(srv.URL), WithObserver(rec))
	require.NoError(t, err)

	listings, err := client.Listings(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	render := listings[0]
	assert.Equal(t, "RENDER", render.Symbol)
	assert.Equal(t, 7.32, *render.Quote["USD"].Price)
	assert.Nil(t, render.Platform)
	assert.Nil(t, listings[1].Quote["USD"].PercentChange24h)
	assert.Equal(t, "0xdead", listings[1].Platform.TokenAddress)
	assert.Equal(t, []string{"ok"}, rec.statuses)

	// The raw records feed straight into ingestion
	batch := market.NewNormalizer(market.DefaultUniverseConfig()).NormalizeAll(listings)
	require.Len(t, batch.Snapshots, 2)
	assert.True(t, batch.Snapshots[1].Quality.MissingChanges)
}

func TestListings_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status": {"error_code": 1001, "error_message": "This API Key is invalid."}}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Listings(context.Background(), 10)
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "This API Key is invalid.")
}

func TestListings_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &recorder{}
	config := testConfig(srv.URL)
	config.FailureThreshold = 3
	client, err := NewClient(config, WithObserver(rec))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.Listings(context.Background(), 10)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	}
	assert.Equal(t, "open", client.BreakerState())

	_, err = client.Listings(context.Background(), 10)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int32(3), hits.Load(), "open breaker must not reach the server")
	assert.Equal(t, []int{2}, rec.states)
	assert.Len(t, rec.statuses, 4)
}

func TestNewClient_RequiresKey(t *testing.T) {
	config := DefaultConfig()
	_, err := NewClient(config)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	config.APIKey = "k"
	config.RPS = 0
	_, err = NewClient(config)
	assert.Error(t, err)
}

func TestListings_ContextCancelled(t *testing.T) {
	client, err := NewClient(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Listings(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
