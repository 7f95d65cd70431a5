package market

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidSnapshot marks a record that cannot enter the core
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrExcluded marks a valid record that the universe rules drop (stablecoins, dust)
	ErrExcluded = errors.New("excluded from universe")
)

// RawQuote is the loosely typed USD quote as delivered by a market-data provider.
// Nil pointers mean the provider omitted the field.
type RawQuote struct {
	Price            *float64 `json:"price"`
	MarketCap        *float64 `json:"market_cap"`
	Volume24h        *float64 `json:"volume_24h"`
	PercentChange1h  *float64 `json:"percent_change_1h"`
	PercentChange24h *float64 `json:"percent_change_24h"`
	PercentChange7d  *float64 `json:"percent_change_7d"`
	VolumeChange24h  *float64 `json:"volume_change_24h"`
}

// RawPlatform is the provider's token platform block
type RawPlatform struct {
	Name         string `json:"name"`
	TokenAddress string `json:"token_address"`
}

// RawListing is one provider listing entry
type RawListing struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Symbol      string              `json:"symbol"`
	Slug        string              `json:"slug"`
	Tags        []string            `json:"tags"`
	Platform    *RawPlatform        `json:"platform"`
	Quote       map[string]RawQuote `json:"quote"`
	LastUpdated string              `json:"last_updated"`
}

// UniverseConfig controls which listings are admitted at ingestion
type UniverseConfig struct {
	QuoteCurrency string   `yaml:"quote_currency"`
	Stablecoins   []string `yaml:"stablecoins"`
	MinMarketCap  float64  `yaml:"min_market_cap"`
	RequireVolume bool     `yaml:"require_volume"`
}

// DefaultUniverseConfig mirrors the listing hygiene of the scanner
func DefaultUniverseConfig() UniverseConfig {
	return UniverseConfig{
		QuoteCurrency: "USD",
		Stablecoins:   []string{"tether", "usd coin", "binance usd", "dai", "usdc", "usdt", "busd"},
		MinMarketCap:  100_000,
		RequireVolume: true,
	}
}

// Normalizer converts raw listings into validated snapshots
type Normalizer struct {
	config UniverseConfig
	stable map[string]struct{}
}

// NewNormalizer builds a normalizer; a zero QuoteCurrency falls back to USD
func NewNormalizer(config UniverseConfig) *Normalizer {
	if config.QuoteCurrency == "" {
		config.QuoteCurrency = "USD"
	}
	stable := make(map[string]struct{}, len(config.Stablecoins))
	for _, name := range config.Stablecoins {
		stable[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &Normalizer{config: config, stable: stable}
}

// Normalize validates one listing. Missing numerics become 0 and the matching
// quality flag is set; records without a symbol or positive price are rejected.
func (n *Normalizer) Normalize(raw RawListing) (CoinSnapshot, error) {
	if _, ok := n.stable[strings.ToLower(strings.TrimSpace(raw.Name))]; ok {
		return CoinSnapshot{}, fmt.Errorf("%w: %s is a stablecoin", ErrExcluded, raw.Symbol)
	}

	quote, ok := raw.Quote[n.config.QuoteCurrency]
	if !ok {
		return CoinSnapshot{}, fmt.Errorf("%w: %s has no %s quote", ErrInvalidSnapshot, raw.Symbol, n.config.QuoteCurrency)
	}

	snap := CoinSnapshot{
		Symbol: strings.ToUpper(strings.TrimSpace(raw.Symbol)),
		Name:   raw.Name,
		Slug:   raw.Slug,
		CMCID:  raw.ID,
		Tags:   raw.Tags,
	}

	snap.Price = value(quote.Price)
	snap.MarketCap = value(quote.MarketCap)
	snap.Volume24h = value(quote.Volume24h)
	snap.PercentChange1h = value(quote.PercentChange1h)
	snap.PercentChange24h = value(quote.PercentChange24h)
	snap.PercentChange7d = value(quote.PercentChange7d)
	snap.VolumeChange24h = value(quote.VolumeChange24h)

	snap.Quality.MissingChanges = missing(quote.PercentChange24h) || missing(quote.PercentChange7d)
	snap.Quality.MissingVolumeChange = missing(quote.VolumeChange24h)
	snap.Quality.NonPositiveMarketCap = !(snap.MarketCap > 0)

	if raw.Platform != nil && raw.Platform.TokenAddress != "" {
		snap.Platform = &Platform{Name: raw.Platform.Name, ContractAddress: raw.Platform.TokenAddress}
	}

	if err := snap.Validate(); err != nil {
		return CoinSnapshot{}, err
	}

	if n.config.RequireVolume && snap.Volume24h == 0 {
		return CoinSnapshot{}, fmt.Errorf("%w: %s has no volume", ErrExcluded, snap.Symbol)
	}
	if snap.MarketCap > 0 && snap.MarketCap < n.config.MinMarketCap {
		return CoinSnapshot{}, fmt.Errorf("%w: %s market cap %.0f below %.0f", ErrExcluded, snap.Symbol, snap.MarketCap, n.config.MinMarketCap)
	}

	return snap, nil
}

// Batch is the outcome of normalizing a whole listing response
type Batch struct {
	Snapshots []CoinSnapshot
	BTC       *CoinSnapshot
	Rejected  int
	Excluded  int
}

// NormalizeAll normalizes every listing; failures are counted, never fatal.
// The BTC reference is taken from the batch when present.
func (n *Normalizer) NormalizeAll(raws []RawListing) Batch {
	batch := Batch{Snapshots: make([]CoinSnapshot, 0, len(raws))}
	for _, raw := range raws {
		snap, err := n.Normalize(raw)
		switch {
		case errors.Is(err, ErrExcluded):
			batch.Excluded++
			continue
		case err != nil:
			batch.Rejected++
			continue
		}
		if snap.Symbol == "BTC" && batch.BTC == nil {
			btc := snap
			batch.BTC = &btc
		}
		batch.Snapshots = append(batch.Snapshots, snap)
	}
	return batch
}

func value(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func missing(v *float64) bool {
	return v == nil || math.IsNaN(*v) || math.IsInf(*v, 0)
}
