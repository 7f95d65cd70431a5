package sizing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize_HalfKelly(t *testing.T) {
	sizer := NewSizer(nil)

	// score 70 -> p 0.6; R = 15/7.5 = 2; f* = 0.6 - 0.4/2 = 0.4; half Kelly = 20% -> capped at 10%
	pos := sizer.Size(70, 15, 7.5)
	assert.InDelta(t, 0.6, pos.WinProbability, 1e-12)
	assert.InDelta(t, 2.0, pos.RewardRisk, 1e-12)
	assert.InDelta(t, 0.4, pos.FullKelly, 1e-12)
	assert.Equal(t, 10.0, pos.PositionPct)

	// score 40 -> p 0.45; R = 2; f* = 0.175; half Kelly = 8.75%
	pos = sizer.Size(40, 10, 5)
	assert.InDelta(t, 8.75, pos.PositionPct, 1e-9)
}

func TestSize_NegativeEdgeUsesMinimum(t *testing.T) {
	// score 0 -> p clamps to 0.30; R = 1; f* = -0.4
	pos := NewSizer(nil).Size(0, 5, 5)
	assert.Equal(t, 0.30, pos.WinProbability)
	assert.Less(t, pos.FullKelly, 0.0)
	assert.Equal(t, 1.0, pos.PositionPct)
}

func TestSize_DegenerateRatio(t *testing.T) {
	sizer := NewSizer(nil)

	for _, c := range []struct{ target, stop float64 }{
		{10, 0},
		{0, 5},
		{-3, 5},
		{math.Inf(1), 5},
		{math.NaN(), 5},
	} {
		pos := sizer.Size(80, c.target, c.stop)
		assert.Equal(t, 1.0, pos.PositionPct, "target %v stop %v", c.target, c.stop)
	}
}

func TestSize_AlwaysWithinBounds(t *testing.T) {
	sizer := NewSizer(nil)

	for score := -50.0; score <= 150; score += 2.5 {
		for _, target := range []float64{1, 8, 10, 12, 15, 20, 80} {
			for _, stop := range []float64{0.5, 5, 6, 7.5, 10, 40} {
				pos := sizer.Size(score, target, stop)
				assert.GreaterOrEqual(t, pos.PositionPct, 1.0)
				assert.LessOrEqual(t, pos.PositionPct, 10.0)
				assert.GreaterOrEqual(t, pos.WinProbability, 0.30)
				assert.LessOrEqual(t, pos.WinProbability, 0.75)
			}
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MinPct = 12
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.KellyFraction = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.MaxWinProb = 1.2
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
