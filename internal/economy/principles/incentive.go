package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerIncentive adds principles about reward structures and the
// faucet:sink balance that shapes participant incentives.
func registerIncentive(r *Registry) {
	r.Register(Principle{
		ID: "P6", Name: "Faucet Dominance", Category: "incentive",
		Description: "Faucets far outpacing sinks erode the value of rewards over time.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.TapSinkRatio == 0 || m.TapSinkRatio < 2.0 {
				return noViolation()
			}
			return violation(5, 0.6, 10, map[string]any{"tapSinkRatio": m.TapSinkRatio},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionDecrease, Magnitude: 0.15,
					Reasoning: "faucets outpacing sinks by more than 2x"})
		},
	})

	r.Register(Principle{
		ID: "P7", Name: "Sink Dominance", Category: "incentive",
		Description: "Sinks far outpacing faucets starve participants of the currency needed to engage.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.TapSinkRatio == 0 || m.TapSinkRatio > 0.5 {
				return noViolation()
			}
			return violation(5, 0.6, 10, map[string]any{"tapSinkRatio": m.TapSinkRatio},
				types.SuggestedAction{ParameterType: "cost", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "sinks outpacing faucets; participants starved of currency"})
		},
	})

	r.Register(Principle{
		ID: "P8", Name: "Gift Trade Inflation", Category: "incentive",
		Description: "A high gift-trade ratio suggests participants are routing around a broken reward loop.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.GiftTradeRatio < 0.3 {
				return noViolation()
			}
			return violation(3, 0.45, 15, map[string]any{"giftTradeRatio": m.GiftTradeRatio},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "high share of trades are effectively gifts"})
		},
	})

	r.Register(Principle{
		ID: "P9", Name: "Disposal Trading", Category: "incentive",
		Description: "A high disposal-trade ratio suggests earned items have no further use.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.DisposalTradeRatio < 0.3 {
				return noViolation()
			}
			return violation(4, 0.5, 15, map[string]any{"disposalTradeRatio": m.DisposalTradeRatio},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "participants disposing of earned items rather than using them"})
		},
	})

	r.Register(Principle{
		ID: "P10", Name: "Reward Anchor Drift", Category: "incentive",
		Description: "Anchor ratio drift indicates rewards have drifted away from their intended real-world value.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.AnchorRatioDrift < 0.25 {
				return noViolation()
			}
			return violation(5, 0.55, 12, map[string]any{"anchorRatioDrift": m.AnchorRatioDrift},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "reward anchor has drifted from baseline"})
		},
	})
}
