package gates

import (
	"sort"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// RankKey carries the fields the ranking order depends on
type RankKey struct {
	Symbol          string
	Score           float64
	VolumeChange24h float64
	Tier            market.Tier
}

// Less orders by score desc, then volume change desc, then larger tier first.
// Symbol is the final tie-break so the order is total.
func (k RankKey) Less(other RankKey) bool {
	if k.Score != other.Score {
		return k.Score > other.Score
	}
	if k.VolumeChange24h != other.VolumeChange24h {
		return k.VolumeChange24h > other.VolumeChange24h
	}
	if k.Tier != other.Tier {
		return k.Tier < other.Tier
	}
	return k.Symbol < other.Symbol
}

// Rank sorts items in place by their key and truncates to TopN (0 = all)
func Rank[T any](items []T, key func(T) RankKey, topN int) []T {
	sort.SliceStable(items, func(i, j int) bool {
		return key(items[i]).Less(key(items[j]))
	})
	if topN > 0 && len(items) > topN {
		items = items[:topN]
	}
	return items
}

// Rank applies the policy's TopN
func (p *Policy) Rank(items []RankKey) []RankKey {
	return Rank(items, func(k RankKey) RankKey { return k }, p.config.TopN)
}
