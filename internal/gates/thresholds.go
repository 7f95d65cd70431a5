package gates

import (
	"fmt"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// CategoryFloors holds the minimum market cap per trading category
type CategoryFloors struct {
	Spot    float64 `yaml:"spot"`    // $30M
	Futures float64 `yaml:"futures"` // $30M
	Web3    float64 `yaml:"web3"`    // $10M, tokens trade thinner
}

// DefaultCategoryFloors returns production liquidity floors
func DefaultCategoryFloors() CategoryFloors {
	return CategoryFloors{
		Spot:    30_000_000,
		Futures: 30_000_000,
		Web3:    10_000_000,
	}
}

// FloorFor returns the floor that applies to a snapshot ranked in a category.
// The empty category uses the snapshot's primary category.
func (f CategoryFloors) FloorFor(s market.CoinSnapshot, category market.Category) float64 {
	if category == "" {
		category = s.Categories()[0]
	}
	switch category {
	case market.CategoryFutures:
		return f.Futures
	case market.CategoryWeb3:
		return f.Web3
	default:
		return f.Spot
	}
}

func (f CategoryFloors) validate() error {
	for name, v := range map[string]float64{"spot": f.Spot, "futures": f.Futures, "web3": f.Web3} {
		if v < 0 {
			return fmt.Errorf("invalid %s market cap floor: %.0f (must be ≥0)", name, v)
		}
	}
	return nil
}

// DescribeThresholds returns a one-line summary of the active gates
func (c *EntryGateConfig) DescribeThresholds() string {
	return fmt.Sprintf("Score: ≥%.0f | |24h|: <%.0f%% | Volume change: >%.0f%% | Wash: <%.0f | Mcap floors: spot $%.0fM, futures $%.0fM, web3 $%.0fM",
		c.MinCompositeScore,
		c.MaxAbsChange24h,
		c.MinVolumeChange24h,
		c.MaxWashConfidence,
		c.Floors.Spot/1e6,
		c.Floors.Futures/1e6,
		c.Floors.Web3/1e6)
}
