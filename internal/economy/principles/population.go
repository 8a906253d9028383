package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerPopulation adds principles about role balance across the
// population.
func registerPopulation(r *Registry) {
	r.Register(Principle{
		ID: "P11", Name: "Role Imbalance", Category: "population",
		Description: "A non-dominant role ballooning past its expected share crowds out other playstyles.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			dominant := map[string]bool{}
			for _, role := range t.DominantRoles {
				dominant[role] = true
			}
			for _, role := range sortedKeys(m.RoleShares) {
				if dominant[role] {
					continue
				}
				if m.RoleShares[role] > 0.5 {
					return violation(4, 0.55, 15, map[string]any{"role": role, "share": m.RoleShares[role]},
						types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionDecrease, Magnitude: 0.1,
							Reasoning: "non-dominant role share has grown past half the population",
							Scope:     &types.ActionScope{Tags: []string{role}}})
				}
			}
			return noViolation()
		},
	})

	r.Register(Principle{
		ID: "P13", Name: "Dominant Role Collapse", Category: "population",
		Description: "A dominant role's share collapsing signals the core gameplay loop is losing participants.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			for _, role := range t.DominantRoles {
				if share, ok := m.RoleShares[role]; ok && share < 0.1 {
					return violation(6, 0.6, 15, map[string]any{"role": role, "share": share},
						types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.15,
							Reasoning: "dominant role share has collapsed",
							Scope:     &types.ActionScope{Tags: []string{role}}})
				}
			}
			return noViolation()
		},
	})

	r.Register(Principle{
		ID: "P14", Name: "Blocked Agents", Category: "population",
		Description: "A large count of blocked agents indicates participants are locked out of progression.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.TotalAgents == 0 || m.BlockedAgentCount/m.TotalAgents < 0.1 {
				return noViolation()
			}
			return violation(6, 0.65, 8, map[string]any{"blockedAgentCount": m.BlockedAgentCount},
				types.SuggestedAction{ParameterType: "cost", Direction: types.DirectionDecrease, Magnitude: 0.15,
					Reasoning: "a significant fraction of agents are blocked from progressing"})
		},
	})

	r.Register(Principle{
		ID: "P15", Name: "New User Dependency", Category: "population",
		Description: "High new-user dependency means the economy only functions with constant fresh inflow.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.NewUserDependency < 0.5 {
				return noViolation()
			}
			return violation(5, 0.55, 20, map[string]any{"newUserDependency": m.NewUserDependency},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "economy overly dependent on new user inflow"})
		},
	})
}
