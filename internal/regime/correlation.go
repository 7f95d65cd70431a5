package regime

import (
	"github.com/sawpanic/cadvi/internal/domain/market"
)

// Bucket labels how a coin moved relative to BTC
type Bucket string

const (
	BucketConfirmedStrength   Bucket = "confirmed_strength"
	BucketIndependentStrength Bucket = "independent_strength"
	BucketDivergence          Bucket = "divergence"
	BucketRelativeStrength    Bucket = "relative_strength"
	BucketWeakness            Bucket = "weakness"
	BucketTrackingMarket      Bucket = "tracking_market"
	BucketUnknown             Bucket = "unknown"
)

// Correlation is the market-context verdict for one coin
type Correlation struct {
	Score     float64 `json:"score"`
	Bucket    Bucket  `json:"bucket"`
	BTCRegime Regime  `json:"btc_regime"`
	RedFlag   bool    `json:"red_flag"`
}

// CorrelationConfig holds the score assigned to each bucket
type CorrelationConfig struct {
	ConfirmedStrength   float64 `yaml:"confirmed_strength"`
	IndependentStrength float64 `yaml:"independent_strength"`
	Divergence          float64 `yaml:"divergence"`
	RelativeStrength    float64 `yaml:"relative_strength"`
	Weakness            float64 `yaml:"weakness"`
	TrackingMarket      float64 `yaml:"tracking_market"`
	Unknown             float64 `yaml:"unknown"`
}

// DefaultCorrelationConfig returns the production bucket scores
func DefaultCorrelationConfig() *CorrelationConfig {
	return &CorrelationConfig{
		ConfirmedStrength:   80,
		IndependentStrength: 70,
		Divergence:          20,
		RelativeStrength:    60,
		Weakness:            30,
		TrackingMarket:      50,
		Unknown:             50,
	}
}

// Analyzer scores a coin's 24h move against the BTC regime
type Analyzer struct {
	detector *Detector
	config   *CorrelationConfig
}

// NewAnalyzer creates a correlation analyzer; nil arguments use defaults
func NewAnalyzer(detector *Detector, config *CorrelationConfig) *Analyzer {
	if detector == nil {
		detector = NewDetector(nil)
	}
	if config == nil {
		config = DefaultCorrelationConfig()
	}
	return &Analyzer{detector: detector, config: config}
}

// Regime exposes the regime the analyzer would assign to a BTC reference
func (a *Analyzer) Regime(btc *market.CoinSnapshot) Regime {
	return a.detector.Detect(btc)
}

// AnalyzeSnapshot is Analyze for a full snapshot. A coin without usable
// price changes cannot be compared to BTC and lands in the unknown bucket.
func (a *Analyzer) AnalyzeSnapshot(coin market.CoinSnapshot, btc *market.CoinSnapshot) Correlation {
	if coin.Quality.MissingChanges {
		return Correlation{Score: a.config.Unknown, Bucket: BucketUnknown, BTCRegime: a.detector.Detect(btc)}
	}
	return a.Analyze(coin.PercentChange24h, btc)
}

// Analyze buckets the coin's 24h change against the BTC reference
func (a *Analyzer) Analyze(coin24h float64, btc *market.CoinSnapshot) Correlation {
	regime := a.detector.Detect(btc)
	if regime == Unknown {
		return Correlation{Score: a.config.Unknown, Bucket: BucketUnknown, BTCRegime: Unknown}
	}

	btc24h := btc.PercentChange24h
	out := Correlation{BTCRegime: regime}

	switch regime {
	case Up:
		if coin24h > btc24h {
			out.Score, out.Bucket = a.config.ConfirmedStrength, BucketConfirmedStrength
		} else {
			out.Score, out.Bucket = a.config.TrackingMarket, BucketTrackingMarket
		}
	case Flat:
		if coin24h > 0 {
			out.Score, out.Bucket = a.config.IndependentStrength, BucketIndependentStrength
		} else {
			out.Score, out.Bucket = a.config.TrackingMarket, BucketTrackingMarket
		}
	case Down:
		switch {
		case coin24h > 0:
			// Rallying against a falling market: possible manipulation
			out.Score, out.Bucket, out.RedFlag = a.config.Divergence, BucketDivergence, true
		case coin24h > btc24h:
			out.Score, out.Bucket = a.config.RelativeStrength, BucketRelativeStrength
		default:
			out.Score, out.Bucket = a.config.Weakness, BucketWeakness
		}
	}

	return out
}
