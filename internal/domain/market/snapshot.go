package market

import (
	"fmt"
	"strings"
)

// Platform identifies the chain a token contract lives on
type Platform struct {
	Name            string `json:"name"`
	ContractAddress string `json:"contract_address"`
}

// DataQuality records which inputs were missing or unusable at ingestion.
// Components read these flags instead of probing raw fields.
type DataQuality struct {
	MissingChanges       bool `json:"missing_changes"`
	MissingVolumeChange  bool `json:"missing_volume_change"`
	NonPositiveMarketCap bool `json:"non_positive_market_cap"`
}

// Degraded reports whether any input was substituted with a neutral default
func (q DataQuality) Degraded() bool {
	return q.MissingChanges || q.MissingVolumeChange || q.NonPositiveMarketCap
}

// CoinSnapshot is a point-in-time market record for one asset.
// Percent fields are expressed in percent units (12.4 means +12.4%).
type CoinSnapshot struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	CMCID  int64  `json:"cmc_id,omitempty"`

	Price            float64 `json:"price"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
	PercentChange1h  float64 `json:"percent_change_1h"`
	PercentChange24h float64 `json:"percent_change_24h"`
	PercentChange7d  float64 `json:"percent_change_7d"`
	VolumeChange24h  float64 `json:"volume_change_24h"`

	Platform *Platform   `json:"platform,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
	Quality  DataQuality `json:"quality"`
}

// ContractAddress returns the token contract or "" for native coins
func (s CoinSnapshot) ContractAddress() string {
	if s.Platform == nil {
		return ""
	}
	return s.Platform.ContractAddress
}

// Turnover returns Volume24h/MarketCap and false when market cap is unusable
func (s CoinSnapshot) Turnover() (float64, bool) {
	if s.MarketCap <= 0 {
		return 0, false
	}
	return s.Volume24h / s.MarketCap, true
}

// HasTag reports whether the listing carries the given provider tag
func (s CoinSnapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// InfoURL links to the CoinMarketCap page for the asset
func (s CoinSnapshot) InfoURL() string {
	if s.Slug == "" {
		return ""
	}
	return fmt.Sprintf("https://coinmarketcap.com/currencies/%s/", s.Slug)
}

// Validate checks the sign constraints the core relies on
func (s CoinSnapshot) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSnapshot)
	}
	if !(s.Price > 0) {
		return fmt.Errorf("%w: %s price must be positive, got %v", ErrInvalidSnapshot, s.Symbol, s.Price)
	}
	if s.MarketCap < 0 {
		return fmt.Errorf("%w: %s market cap must be non-negative, got %v", ErrInvalidSnapshot, s.Symbol, s.MarketCap)
	}
	if s.Volume24h < 0 {
		return fmt.Errorf("%w: %s volume must be non-negative, got %v", ErrInvalidSnapshot, s.Symbol, s.Volume24h)
	}
	return nil
}
