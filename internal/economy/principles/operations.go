package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerOperations adds principles about the operational health of the
// economy's own plumbing: the content pipeline and automation overhead,
// as opposed to the balances flowing through it.
func registerOperations(r *Registry) {
	r.Register(Principle{
		ID: "P59", Name: "Content Drop Staleness", Category: "operations",
		Description: "Content aging well past its refresh cadence without replacement starves the sink side of the economy.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.ContentDropAge < 30 {
				return noViolation()
			}
			return violation(3, 0.4, 20, map[string]any{"contentDropAge": m.ContentDropAge},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionIncrease, Magnitude: 0.05,
					Reasoning: "content has gone stale well past its refresh cadence"})
		},
	})

	r.Register(Principle{
		ID: "P60", Name: "Automation Overreach", Category: "operations",
		Description: "A large number of simultaneously active adjustment plans signals the automation is chasing noise rather than settling.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			active, ok := m.Custom["activePlans"]
			if !ok || active < float64(t.ComplexityBudgetMax) {
				return noViolation()
			}
			return violation(3, 0.4, 5, map[string]any{"activePlans": active, "budget": t.ComplexityBudgetMax},
				types.SuggestedAction{ParameterType: "cooldown", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "too many adjustment plans active at once, relative to the complexity budget"})
		},
	})
}
