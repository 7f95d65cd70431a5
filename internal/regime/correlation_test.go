package regime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

func btcAt(change24h float64) *market.CoinSnapshot {
	return &market.CoinSnapshot{Symbol: "BTC", Price: 65000, MarketCap: 1.3e12, Volume24h: 3e10, PercentChange24h: change24h}
}

func TestDetector_Classify(t *testing.T) {
	d := NewDetector(nil)

	assert.Equal(t, Up, d.Classify(3))
	assert.Equal(t, Up, d.Classify(7.5))
	assert.Equal(t, Flat, d.Classify(2.99))
	assert.Equal(t, Flat, d.Classify(-1.99))
	assert.Equal(t, Down, d.Classify(-2))
	assert.Equal(t, Unknown, d.Detect(nil))

	stale := btcAt(5)
	stale.Quality.MissingChanges = true
	assert.Equal(t, Unknown, d.Detect(stale))
}

func TestAnalyze_Buckets(t *testing.T) {
	a := NewAnalyzer(nil, nil)

	tests := []struct {
		name    string
		coin    float64
		btc     *market.CoinSnapshot
		score   float64
		bucket  Bucket
		redFlag bool
	}{
		{"outperforms rising btc", 8, btcAt(4), 80, BucketConfirmedStrength, false},
		{"lags rising btc", 2, btcAt(4), 50, BucketTrackingMarket, false},
		{"up while btc flat", 3, btcAt(0.5), 70, BucketIndependentStrength, false},
		{"down while btc flat", -1, btcAt(0.5), 50, BucketTrackingMarket, false},
		{"up while btc falls", 6, btcAt(-4), 20, BucketDivergence, true},
		{"falls less than btc", -1, btcAt(-4), 60, BucketRelativeStrength, false},
		{"falls more than btc", -9, btcAt(-4), 30, BucketWeakness, false},
		{"falls as much as btc", -4, btcAt(-4), 30, BucketWeakness, false},
		{"no reference", 12, nil, 50, BucketUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := a.Analyze(tt.coin, tt.btc)
			assert.Equal(t, tt.score, c.Score)
			assert.Equal(t, tt.bucket, c.Bucket)
			assert.Equal(t, tt.redFlag, c.RedFlag)
		})
	}
}

func TestAnalyze_CustomThresholds(t *testing.T) {
	a := NewAnalyzer(NewDetector(&DetectorConfig{UpThreshold: 1, DownThreshold: -1}), nil)

	c := a.Analyze(5, btcAt(1.5))
	assert.Equal(t, Up, c.BTCRegime)
	assert.Equal(t, BucketConfirmedStrength, c.Bucket)
}

func TestCorrelation_JSONUsesRegimeNames(t *testing.T) {
	c := NewAnalyzer(nil, nil).Analyze(6, btcAt(-4))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"btc_regime":"down"`)

	var back Correlation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
}

func TestAnalyzeSnapshot_MissingChanges(t *testing.T) {
	a := NewAnalyzer(nil, nil)

	coin := market.CoinSnapshot{Symbol: "STALE", Price: 1}
	coin.Quality.MissingChanges = true
	corr := a.AnalyzeSnapshot(coin, btcAt(-6))
	assert.Equal(t, Correlation{Score: 50, Bucket: BucketUnknown, BTCRegime: Down}, corr)

	// Usable changes take the normal path
	coin.Quality.MissingChanges = false
	coin.PercentChange24h = -1
	assert.Equal(t, BucketRelativeStrength, a.AnalyzeSnapshot(coin, btcAt(-6)).Bucket)
}
