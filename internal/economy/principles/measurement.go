package principles

import (
	"math"

	"github.com/atlas-desktop/agente/internal/economy/types"
)

// registerMeasurement adds principles about the reliability of the
// measurements themselves, rather than the economy they describe.
func registerMeasurement(r *Registry) {
	r.Register(Principle{
		ID: "P31", Name: "Unresolvable Event Completion", Category: "measurement",
		Description: "eventCompletionRate being NaN (no produce events this tick) is informational, not a violation by itself; flagged only alongside a dip in activity.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if !math.IsNaN(m.EventCompletionRate) {
				return noViolation()
			}
			total := 0.0
			for _, v := range m.ActivityBySystem {
				total += v
			}
			if total > 0 {
				return noViolation()
			}
			return violation(2, 0.3, 10, map[string]any{"eventCompletionRate": "not_applicable"},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.05,
					Reasoning: "no measurable production activity this tick"})
		},
	})

	r.Register(Principle{
		ID: "P32", Name: "Divergent Resolutions", Category: "measurement",
		Description: "Fine and coarse resolution readings disagreeing sharply means short-term noise is masking the trend.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			diff, ok := m.Custom["resolutionDivergence"]
			if !ok || diff <= 20 {
				return noViolation()
			}
			return violation(3, 0.4, 10, map[string]any{"resolutionDivergence": diff},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.05,
					Reasoning: "fine and coarse metric resolutions have diverged"})
		},
	})

	r.Register(Principle{
		ID: "P50", Name: "Event Completion Floor", Category: "measurement",
		Description: "A measurable event completion rate falling below the configured floor signals broken production loops.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if math.IsNaN(m.EventCompletionRate) || m.EventCompletionRate >= t.EventCompletionFloor {
				return noViolation()
			}
			return violation(5, 0.55, 8, map[string]any{"eventCompletionRate": m.EventCompletionRate},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "event completion rate below configured floor"})
		},
	})
}
