package scoring

import (
	"fmt"
	"math"
	"strings"

	"stock-advisor/internal/errors"
)

// RiskProfile selects the indicator weighting and position sizing rules.
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
	RiskAggressive   RiskProfile = "aggressive"
)

// ParseRiskProfile normalizes a user-supplied profile name.
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch RiskProfile(strings.ToLower(strings.TrimSpace(s))) {
	case RiskConservative:
		return RiskConservative, nil
	case RiskModerate:
		return RiskModerate, nil
	case RiskAggressive:
		return RiskAggressive, nil
	default:
		return "", errors.Wrapf(errors.ErrConfigInvalid, "unknown risk profile %q", s)
	}
}

// Weights assigns each indicator category its share of the composite score.
type Weights struct {
	RSI       float64
	MACD      float64
	MA        float64
	Bollinger float64
	Volume    float64
}

// Sum returns the total weight across all categories.
func (w Weights) Sum() float64 {
	return w.RSI + w.MACD + w.MA + w.Bollinger + w.Volume
}

// Sizing controls how recommendation confidence maps to position size.
type Sizing struct {
	BaseAllocationPct float64
	MaxAllocationPct  float64
}

var profiles = map[RiskProfile]struct {
	weights Weights
	sizing  Sizing
}{
	RiskConservative: {
		weights: Weights{RSI: 0.25, MACD: 0.20, MA: 0.30, Bollinger: 0.15, Volume: 0.10},
		sizing:  Sizing{BaseAllocationPct: 5, MaxAllocationPct: 10},
	},
	RiskModerate: {
		weights: Weights{RSI: 0.20, MACD: 0.25, MA: 0.25, Bollinger: 0.20, Volume: 0.10},
		sizing:  Sizing{BaseAllocationPct: 10, MaxAllocationPct: 20},
	},
	RiskAggressive: {
		weights: Weights{RSI: 0.15, MACD: 0.30, MA: 0.20, Bollinger: 0.25, Volume: 0.10},
		sizing:  Sizing{BaseAllocationPct: 15, MaxAllocationPct: 25},
	},
}

// ProfileWeights returns the indicator weights for a profile.
func ProfileWeights(p RiskProfile) (Weights, error) {
	entry, ok := profiles[p]
	if !ok {
		return Weights{}, errors.Wrapf(errors.ErrConfigInvalid, "unknown risk profile %q", p)
	}
	if math.Abs(entry.weights.Sum()-1.0) > 1e-9 {
		return Weights{}, fmt.Errorf("risk profile %q weights sum to %.4f, want 1.0: %w",
			p, entry.weights.Sum(), errors.ErrConfigInvalid)
	}
	return entry.weights, nil
}

// ProfileSizing returns the position sizing rules for a profile.
func ProfileSizing(p RiskProfile) (Sizing, error) {
	entry, ok := profiles[p]
	if !ok {
		return Sizing{}, errors.Wrapf(errors.ErrConfigInvalid, "unknown risk profile %q", p)
	}
	return entry.sizing, nil
}
