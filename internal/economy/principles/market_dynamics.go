package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerMarketDynamics adds principles about price-level behavior across
// resources within a currency.
func registerMarketDynamics(r *Registry) {
	r.Register(Principle{
		ID: "P26", Name: "Price Index Spike", Category: "market_dynamics",
		Description: "A price index far above baseline signals runaway marketplace inflation.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.PriceIndex < 1.5 {
				return noViolation()
			}
			return violation(6, 0.65, 6, map[string]any{"priceIndex": m.PriceIndex},
				types.SuggestedAction{ParameterType: "fee", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "marketplace price index spiking relative to baseline"})
		},
	})

	r.Register(Principle{
		ID: "P27", Name: "Price Index Collapse", Category: "market_dynamics",
		Description: "A price index far below baseline signals deflation and an oversupplied market.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.PriceIndex == 0 || m.PriceIndex > 0.5 {
				return noViolation()
			}
			return violation(5, 0.6, 8, map[string]any{"priceIndex": m.PriceIndex},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "marketplace price index collapsing relative to baseline"})
		},
	})

	r.Register(Principle{
		ID: "P28", Name: "Arbitrage Warning Band", Category: "market_dynamics",
		Description: "Arbitrage index in the warning band (below critical) is an early signal worth a gentle nudge.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			c, v, found := worstAbove(m.ArbitrageIndexByCurrency, t.ArbitrageIndexWarning)
			if !found || v >= t.ArbitrageIndexCritical {
				return noViolation()
			}
			return violation(3, 0.45, 6, map[string]any{"currency": c, "arbitrageIndex": v},
				types.SuggestedAction{ParameterType: "fee", Direction: types.DirectionIncrease, Magnitude: 0.05,
					Reasoning: "arbitrage index entering the warning band",
					Scope:     &types.ActionScope{Currency: c}})
		},
	})

	r.Register(Principle{
		ID: "P29", Name: "Anchor Ratio Drift (Market)", Category: "market_dynamics",
		Description: "Market-side anchor drift complements the incentive-side P10 check with a market-dynamics lens.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.AnchorRatioDrift < 0.4 {
				return noViolation()
			}
			return violation(6, 0.6, 8, map[string]any{"anchorRatioDrift": m.AnchorRatioDrift},
				types.SuggestedAction{ParameterType: "fee", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "severe anchor ratio drift in market pricing"})
		},
	})

	r.Register(Principle{
		ID: "P30", Name: "Thin Market Activity", Category: "market_dynamics",
		Description: "Very low activity across all systems means prices are not price-discovering meaningfully.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			total := 0.0
			for _, v := range m.ActivityBySystem {
				total += v
			}
			if total > 1 || m.TotalAgents == 0 {
				return noViolation()
			}
			return violation(3, 0.4, 15, map[string]any{"totalActivity": total},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "market activity too thin for reliable price discovery"})
		},
	})
}
