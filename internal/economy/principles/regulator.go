package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerRegulator adds principles about pool-level regulatory health:
// operator share, win rate, and pool capacity.
func registerRegulator(r *Registry) {
	r.Register(Principle{
		ID: "P22", Name: "Pool Over Capacity", Category: "regulator",
		Description: "A pool exceeding its configured capacity percent of total supply threatens solvency elsewhere.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			for currency, pools := range m.PoolSizesByCurrency {
				total := m.TotalSupplyByCurrency[currency]
				if total == 0 {
					continue
				}
				for pool, size := range pools {
					if size/total > t.PoolCapPercent {
						return violation(6, 0.65, 6, map[string]any{"currency": currency, "pool": pool, "ratio": size / total},
							types.SuggestedAction{ParameterType: "cap", Direction: types.DirectionDecrease, Magnitude: 0.1,
								Reasoning:     "pool exceeds its configured capacity share",
								Scope:         &types.ActionScope{Currency: currency, Tags: []string{pool}}})
					}
				}
			}
			return noViolation()
		},
	})

	r.Register(Principle{
		ID: "P23", Name: "Operator Share Excess", Category: "regulator",
		Description: "A house/operator cut above its configured share erodes trust in the pool mechanic.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			share, ok := m.Custom["poolOperatorShare"]
			if !ok || share <= t.PoolOperatorShare {
				return noViolation()
			}
			return violation(5, 0.55, 8, map[string]any{"operatorShare": share},
				types.SuggestedAction{ParameterType: "fee", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "operator cut exceeds configured share"})
		},
	})

	r.Register(Principle{
		ID: "P24", Name: "Pool Win Rate Drift", Category: "regulator",
		Description: "A participant win rate drifting far from the configured target suggests a mistuned payout curve.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			rate, ok := m.Custom["poolWinRate"]
			if !ok {
				return noViolation()
			}
			delta := rate - t.PoolWinRate
			if delta > -0.1 && delta < 0.1 {
				return noViolation()
			}
			direction := types.DirectionIncrease
			if delta > 0 {
				direction = types.DirectionDecrease
			}
			return violation(4, 0.5, 10, map[string]any{"winRate": rate, "target": t.PoolWinRate},
				types.SuggestedAction{ParameterType: "yield", Direction: direction, Magnitude: 0.1,
					Reasoning: "pool win rate has drifted from its configured target"})
		},
	})

	r.Register(Principle{
		ID: "P25", Name: "Complexity Overload", Category: "regulator",
		Description: "The engine itself running near its complexity budget is a regulator-level concern worth surfacing.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			active, ok := m.Custom["activePlans"]
			if !ok || t.ComplexityBudgetMax == 0 || active < float64(t.ComplexityBudgetMax)-1 {
				return noViolation()
			}
			return violation(2, 0.3, 5, map[string]any{"activePlans": active},
				types.SuggestedAction{ParameterType: "cap", Direction: types.DirectionDecrease, Magnitude: 0.05,
					Reasoning: "active plan count approaching the complexity budget"})
		},
	})
}
