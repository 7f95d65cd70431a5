package market

// Tier buckets assets by market capitalisation. Lower ordinal = larger cap.
type Tier int

const (
	TierLarge Tier = iota
	TierMid
	TierSmall
	TierMicro
)

// Market cap boundaries for the tiers
const (
	MicroCapCeiling = 50_000_000
	SmallCapCeiling = 250_000_000
	MidCapCeiling   = 2_000_000_000
)

func (t Tier) String() string {
	switch t {
	case TierLarge:
		return "large"
	case TierMid:
		return "mid"
	case TierSmall:
		return "small"
	case TierMicro:
		return "micro"
	default:
		return "unknown"
	}
}

// TierFor classifies a market cap
func TierFor(marketCap float64) Tier {
	switch {
	case marketCap < MicroCapCeiling:
		return TierMicro
	case marketCap < SmallCapCeiling:
		return TierSmall
	case marketCap < MidCapCeiling:
		return TierMid
	default:
		return TierLarge
	}
}

// RiskLevel is the user-facing risk label
type RiskLevel string

const (
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

// RiskLevelFor maps a market-cap risk score (0-100) to a label
func RiskLevelFor(marketCapRisk float64) RiskLevel {
	switch {
	case marketCapRisk >= 70:
		return RiskExtreme
	case marketCapRisk >= 40:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// Category is a trading venue segment a coin can be ranked in
type Category string

const (
	CategorySpot    Category = "spot"
	CategoryFutures Category = "futures"
	CategoryWeb3    Category = "web3"
)

// ParseCategory accepts "", "all", "spot", "futures", "web3"; "" means all
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case "", "all":
		return "", true
	case CategorySpot, CategoryFutures, CategoryWeb3:
		return Category(s), true
	default:
		return "", false
	}
}

// Futures listing heuristics: established, liquid coins
const (
	futuresMinMarketCap = 100_000_000
	futuresMinVolume    = 10_000_000
)

// Categories derives the segments a snapshot trades in. Tokens with a contract
// address are web3; native coins are spot, and liquid ones also futures.
func (s CoinSnapshot) Categories() []Category {
	if s.ContractAddress() != "" {
		return []Category{CategoryWeb3}
	}
	cats := []Category{CategorySpot}
	if s.MarketCap > futuresMinMarketCap && s.Volume24h > futuresMinVolume {
		cats = append(cats, CategoryFutures)
	}
	return cats
}

// InCategory reports membership; the empty category matches everything
func (s CoinSnapshot) InCategory(c Category) bool {
	if c == "" {
		return true
	}
	for _, have := range s.Categories() {
		if have == c {
			return true
		}
	}
	return false
}
