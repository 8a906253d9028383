package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerParticipantExperience adds principles framed from the player's
// vantage point rather than the ledger's: satisfaction, progression, and
// perceived fairness.
func registerParticipantExperience(r *Registry) {
	r.Register(Principle{
		ID: "P52", Name: "Progression Stall", Category: "participant_experience",
		Description: "Low production index alongside low satisfaction suggests players feel stuck, not just the ledger.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.AvgSatisfaction == 0 || m.AvgSatisfaction >= t.SatisfactionFloor+10 || m.ProductionIndex >= 0.5 {
				return noViolation()
			}
			return violation(5, 0.55, 10, map[string]any{"avgSatisfaction": m.AvgSatisfaction, "productionIndex": m.ProductionIndex},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionIncrease, Magnitude: 0.15,
					Reasoning: "players appear stalled: low output and flagging satisfaction together"})
		},
	})

	r.Register(Principle{
		ID: "P53", Name: "Engagement Valley Deepening", Category: "participant_experience",
		Description: "Valleys in the engagement window deepening relative to peaks signals growing disengagement troughs.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if len(m.CyclicalValleys) < 2 {
				return noViolation()
			}
			first := m.CyclicalValleys[0]
			last := m.CyclicalValleys[len(m.CyclicalValleys)-1]
			if first <= 0 || last >= first*0.7 {
				return noViolation()
			}
			return violation(4, 0.5, 15, map[string]any{"firstValley": first, "lastValley": last},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "engagement valleys deepening over the observed window"})
		},
	})

	r.Register(Principle{
		ID: "P54", Name: "Peak Engagement Decline", Category: "participant_experience",
		Description: "Peaks in the engagement window shrinking over time signals eroding top-end engagement.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if len(m.CyclicalPeaks) < 2 {
				return noViolation()
			}
			first := m.CyclicalPeaks[0]
			last := m.CyclicalPeaks[len(m.CyclicalPeaks)-1]
			if first <= 0 || last >= first*0.7 {
				return noViolation()
			}
			return violation(4, 0.5, 15, map[string]any{"firstPeak": first, "lastPeak": last},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "engagement peaks declining over the observed window"})
		},
	})

	r.Register(Principle{
		ID: "P55", Name: "Perceived Unfairness", Category: "participant_experience",
		Description: "High gini alongside low satisfaction suggests the wealth gap is driving the dissatisfaction, not just noise.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.GiniCoefficient < t.GiniWarn || m.AvgSatisfaction == 0 || m.AvgSatisfaction >= t.SatisfactionFloor {
				return noViolation()
			}
			return violation(6, 0.6, 10, map[string]any{"gini": m.GiniCoefficient, "avgSatisfaction": m.AvgSatisfaction},
				types.SuggestedAction{ParameterType: "redistribution", Direction: types.DirectionIncrease, Magnitude: 0.15,
					Reasoning: "wealth gap appears to be driving satisfaction down"})
		},
	})
}
