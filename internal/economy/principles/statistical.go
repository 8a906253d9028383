package principles

import (
	"math"

	"github.com/atlas-desktop/agente/internal/economy/types"
)

// registerStatistical adds principles expressed as pure statistical
// crossings rather than domain-specific interpretations.
func registerStatistical(r *Registry) {
	r.Register(Principle{
		ID: "P38", Name: "Supply Volatility Spike", Category: "statistical",
		Description: "Total supply jumping far from its previous tick in a single step suggests an unvetted bulk mint/burn.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if math.Abs(m.InflationRate) < 0.3 {
				return noViolation()
			}
			direction := types.DirectionIncrease
			if m.InflationRate > 0 {
				direction = types.DirectionDecrease
			}
			return violation(6, 0.6, 4, map[string]any{"inflationRate": m.InflationRate},
				types.SuggestedAction{ParameterType: "cost", Direction: direction, Magnitude: 0.15,
					Reasoning: "supply changed sharply in a single tick"})
		},
	})

	r.Register(Principle{
		ID: "P39", Name: "Outlier Balance Skew", Category: "statistical",
		Description: "A very high top-10% share alongside high gini indicates outlier whales distorting aggregate stats.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.Top10PctShare < 0.7 || m.GiniCoefficient < t.GiniWarn {
				return noViolation()
			}
			return violation(5, 0.55, 10, map[string]any{"top10PctShare": m.Top10PctShare, "gini": m.GiniCoefficient},
				types.SuggestedAction{ParameterType: "redistribution", Direction: types.DirectionIncrease, Magnitude: 0.15,
					Reasoning: "outlier holders are skewing aggregate wealth statistics"})
		},
	})

	r.Register(Principle{
		ID: "P40", Name: "Velocity Collapse", Category: "statistical",
		Description: "Velocity collapsing toward zero signals the currency has stopped circulating.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.Velocity > 0.01 {
				return noViolation()
			}
			return violation(4, 0.5, 12, map[string]any{"velocity": m.Velocity},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "currency velocity has collapsed"})
		},
	})

	r.Register(Principle{
		ID: "P41", Name: "Velocity Overheat", Category: "statistical",
		Description: "Velocity far above historical norms signals speculative churn rather than healthy circulation.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.Velocity < 5.0 {
				return noViolation()
			}
			return violation(4, 0.45, 10, map[string]any{"velocity": m.Velocity},
				types.SuggestedAction{ParameterType: "fee", Direction: types.DirectionIncrease, Magnitude: 0.05,
					Reasoning: "currency velocity far above normal, suggesting speculative churn"})
		},
	})
}
