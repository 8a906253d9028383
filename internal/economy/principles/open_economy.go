package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerOpenEconomy adds principles about the economy's exposure to
// external actors: new entrants, cross-boundary flow, and anchor drift
// against whatever reference point the host treats as "real world" value.
func registerOpenEconomy(r *Registry) {
	r.Register(Principle{
		ID: "P56", Name: "New Entrant Flood", Category: "open_economy",
		Description: "A surge of enter events relative to total population dilutes existing holders' share faster than the economy can absorb.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.TotalAgents == 0 || m.NewUserDependency < 0.4 {
				return noViolation()
			}
			return violation(4, 0.45, 12, map[string]any{"newUserDependency": m.NewUserDependency},
				types.SuggestedAction{ParameterType: "cost", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "new-entrant flow dependency is unusually high"})
		},
	})

	r.Register(Principle{
		ID: "P57", Name: "Anchor Ratio Drift", Category: "open_economy",
		Description: "The currency's value anchor drifting from its reference ratio signals the open economy decoupling from its intended peg.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.AnchorRatioDrift == 0 || (m.AnchorRatioDrift > -0.2 && m.AnchorRatioDrift < 0.2) {
				return noViolation()
			}
			direction := types.DirectionDecrease
			if m.AnchorRatioDrift < 0 {
				direction = types.DirectionIncrease
			}
			return violation(5, 0.5, 10, map[string]any{"anchorRatioDrift": m.AnchorRatioDrift},
				types.SuggestedAction{ParameterType: "cost", Direction: direction, Magnitude: 0.15,
					Reasoning: "value anchor has drifted from its intended reference ratio"})
		},
	})

	r.Register(Principle{
		ID: "P58", Name: "Churn Exodus", Category: "open_economy",
		Description: "Churn far outpacing new-entrant inflow signals the open economy is net-losing participants, shrinking the base every other principle assumes.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.ChurnRate < 0.15 {
				return noViolation()
			}
			return violation(6, 0.55, 8, map[string]any{"churnRate": m.ChurnRate},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.2,
					Reasoning: "participant churn rate far exceeds a sustainable level"})
		},
	})
}
