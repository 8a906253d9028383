package principles

import (
	"github.com/atlas-desktop/agente/internal/economy/types"
)

// registerCurrency adds the currency-category principles: supply growth,
// wealth concentration, and price-arbitrage checks scoped per currency.
func registerCurrency(r *Registry) {
	r.Register(Principle{
		ID: "P12", Name: "Inflationary Currency", Category: "currency",
		Description: "Flags a currency whose net flow this tick exceeds the configured warning threshold.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			c, v, found := worstAbove(m.NetFlowByCurrency, t.NetFlowWarn)
			if !found {
				return noViolation()
			}
			return violation(5, 0.8, 5,
				map[string]any{"currency": c, "netFlow": v},
				types.SuggestedAction{
					ParameterType: "cost",
					Direction:     types.DirectionIncrease,
					Magnitude:     0.15,
					Reasoning:     "net flow exceeds warning threshold; raising a sink-side cost to absorb excess currency",
					Scope:         &types.ActionScope{Currency: c},
				})
		},
	})

	r.Register(Principle{
		ID: "P33", Name: "Wealth Concentration", Category: "currency",
		Description: "Flags the currency with the worst Gini coefficient once it crosses the red threshold.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			c, v, found := worstAbove(m.GiniCoefficientByCurrency, t.GiniRed)
			if !found {
				return noViolation()
			}
			return violation(7, 0.85, 8,
				map[string]any{"currency": c, "gini": v},
				types.SuggestedAction{
					ParameterType: "redistribution",
					Direction:     types.DirectionIncrease,
					Magnitude:     0.2,
					Reasoning:     "wealth concentration exceeds the red threshold for this currency",
					Scope:         &types.ActionScope{Currency: c},
				})
		},
	})

	r.Register(Principle{
		ID: "P34", Name: "Wealth Concentration Warning", Category: "currency",
		Description: "Early warning when a currency's Gini coefficient crosses the amber threshold, before P33 fires.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			c, v, found := worstAbove(m.GiniCoefficientByCurrency, t.GiniWarn)
			if !found || v >= t.GiniRed {
				return noViolation()
			}
			return violation(3, 0.6, 12,
				map[string]any{"currency": c, "gini": v},
				types.SuggestedAction{
					ParameterType: "redistribution",
					Direction:     types.DirectionIncrease,
					Magnitude:     0.1,
					Reasoning:     "wealth concentration crossed the warning threshold",
					Scope:         &types.ActionScope{Currency: c},
				})
		},
	})

	r.Register(Principle{
		ID: "P35", Name: "Mean-Median Divergence", Category: "currency",
		Description: "A widening gap between mean and median balance signals a small cohort pulling the average up.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			c, v, found := worstAbove(m.MeanMedianDivergenceByCurrency, 0.5)
			if !found {
				return noViolation()
			}
			return violation(4, 0.55, 10,
				map[string]any{"currency": c, "divergence": v},
				types.SuggestedAction{
					ParameterType: "redistribution",
					Direction:     types.DirectionIncrease,
					Magnitude:     0.1,
					Reasoning:     "mean balance diverging sharply from median",
					Scope:         &types.ActionScope{Currency: c},
				})
		},
	})

	r.Register(Principle{
		ID: "P36", Name: "Top Holder Share", Category: "currency",
		Description: "The top decile of holders controlling too large a share of supply indicates hoarding.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			c, v, found := worstAbove(m.Top10PctShareByCurrency, 0.6)
			if !found {
				return noViolation()
			}
			return violation(6, 0.7, 8,
				map[string]any{"currency": c, "top10Share": v},
				types.SuggestedAction{
					ParameterType: "cap",
					Direction:     types.DirectionDecrease,
					Magnitude:     0.15,
					Reasoning:     "top decile holds an excessive share of supply",
					Scope:         &types.ActionScope{Currency: c},
				})
		},
	})

	r.Register(Principle{
		ID: "P37", Name: "Price Arbitrage", Category: "currency",
		Description: "Arbitrage index crossing the critical threshold signals price divergence worth exploiting.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			c, v, found := worstAbove(m.ArbitrageIndexByCurrency, t.ArbitrageIndexCritical)
			if !found {
				return noViolation()
			}
			return violation(6, 0.65, 3,
				map[string]any{"currency": c, "arbitrageIndex": v},
				types.SuggestedAction{
					ParameterType: "fee",
					Direction:     types.DirectionIncrease,
					Magnitude:     0.1,
					Reasoning:     "arbitrage index above critical; raise a friction fee on cross-resource trades",
					Scope:         &types.ActionScope{Currency: c},
				})
		},
	})
}
