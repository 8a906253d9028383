package principles

import (
	"math"

	"github.com/atlas-desktop/agente/internal/economy/types"
)

// registerFeedback adds principles about satisfaction trends and divergence
// between short- and long-run metric resolutions.
func registerFeedback(r *Registry) {
	r.Register(Principle{
		ID: "P19", Name: "Satisfaction Floor Breach", Category: "feedback",
		Description: "Average satisfaction dropping below the configured floor is the clearest signal to intervene.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.AvgSatisfaction == 0 || m.AvgSatisfaction >= t.SatisfactionFloor {
				return noViolation()
			}
			return violation(7, 0.75, 6, map[string]any{"avgSatisfaction": m.AvgSatisfaction},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.15,
					Reasoning: "average satisfaction below floor"})
		},
	})

	r.Register(Principle{
		ID: "P20", Name: "Churn Spike", Category: "feedback",
		Description: "Churn rate crossing a hard ceiling signals an acute problem, not a slow decline.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.ChurnRate < 0.1 {
				return noViolation()
			}
			return violation(8, 0.8, 4, map[string]any{"churnRate": m.ChurnRate},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.2,
					Reasoning: "churn rate spike"})
		},
	})

	r.Register(Principle{
		ID: "P21", Name: "Cyclical Decay", Category: "feedback",
		Description: "Shrinking peak-to-valley amplitude in the engagement window signals fading cyclical engagement.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if len(m.CyclicalPeaks) < 2 || len(m.CyclicalValleys) < 2 {
				return noViolation()
			}
			firstAmp := math.Abs(m.CyclicalPeaks[0] - m.CyclicalValleys[0])
			lastAmp := math.Abs(m.CyclicalPeaks[len(m.CyclicalPeaks)-1] - m.CyclicalValleys[len(m.CyclicalValleys)-1])
			if firstAmp == 0 || lastAmp/firstAmp > 0.5 {
				return noViolation()
			}
			return violation(3, 0.4, 20, map[string]any{"decayRatio": lastAmp / firstAmp},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "cyclical engagement amplitude decaying"})
		},
	})

	r.Register(Principle{
		ID: "P51", Name: "Shark-Tooth Flattening", Category: "feedback",
		Description: "A near-flat engagement signal (no peaks or valleys detected) means the cyclical pattern has disappeared.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if len(m.CyclicalPeaks) > 0 || len(m.CyclicalValleys) > 0 {
				return noViolation()
			}
			if m.TotalAgents == 0 {
				return noViolation()
			}
			return violation(2, 0.3, 25, map[string]any{"totalAgents": m.TotalAgents},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.05,
					Reasoning: "engagement signal has flattened, no cyclical pattern detected"})
		},
	})
}
