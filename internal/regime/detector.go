package regime

import (
	"github.com/sawpanic/cadvi/internal/domain/market"
)

// Regime is the BTC market direction used as context for every coin
type Regime int

const (
	Unknown Regime = iota
	Up
	Flat
	Down
)

func (r Regime) String() string {
	switch r {
	case Up:
		return "up"
	case Flat:
		return "flat"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// MarshalText renders the regime by name in JSON and YAML
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a regime name; anything unrecognised is Unknown
func (r *Regime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "up":
		*r = Up
	case "flat":
		*r = Flat
	case "down":
		*r = Down
	default:
		*r = Unknown
	}
	return nil
}

// DetectorConfig holds the BTC 24h move boundaries
type DetectorConfig struct {
	UpThreshold   float64 `yaml:"up_threshold"`   // ≥+3% = up
	DownThreshold float64 `yaml:"down_threshold"` // ≤-2% = down
}

// DefaultDetectorConfig returns the production regime boundaries
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		UpThreshold:   3.0,
		DownThreshold: -2.0,
	}
}

// Detector classifies the BTC regime from its 24h change
type Detector struct {
	config *DetectorConfig
}

// NewDetector creates a regime detector; nil config uses defaults
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &Detector{config: config}
}

// Classify maps a BTC 24h percent change to a regime
func (d *Detector) Classify(btc24h float64) Regime {
	switch {
	case btc24h >= d.config.UpThreshold:
		return Up
	case btc24h <= d.config.DownThreshold:
		return Down
	default:
		return Flat
	}
}

// Detect classifies the regime of a BTC reference snapshot. A nil reference
// or one without usable price changes is Unknown.
func (d *Detector) Detect(btc *market.CoinSnapshot) Regime {
	if btc == nil || btc.Quality.MissingChanges {
		return Unknown
	}
	return d.Classify(btc.PercentChange24h)
}
