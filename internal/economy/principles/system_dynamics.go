package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerSystemDynamics adds principles about system-scoped flow,
// comparing gameplay systems against one another rather than the economy
// as a whole.
func registerSystemDynamics(r *Registry) {
	r.Register(Principle{
		ID: "P42", Name: "Dominant System Flow", Category: "system_dynamics",
		Description: "One system accounting for the overwhelming majority of flow crowds out the rest of the content.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			total := 0.0
			for _, v := range m.FlowBySystem {
				total += v
			}
			if total == 0 {
				return noViolation()
			}
			system, flow, found := worstAbove(m.FlowBySystem, total*0.7)
			if !found {
				return noViolation()
			}
			return violation(4, 0.5, 12, map[string]any{"system": system, "share": flow / total},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "one system dominates total flow",
					Scope:     &types.ActionScope{System: system}})
		},
	})

	r.Register(Principle{
		ID: "P43", Name: "Idle System", Category: "system_dynamics",
		Description: "A registered system with zero participants signals dead content; the suggested action raises rewards scoped to that system.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			for _, system := range sortedKeys(m.ParticipantsBySystem) {
				if m.ParticipantsBySystem[system] == 0 {
					return violation(2, 0.3, 20, map[string]any{"system": system},
						types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.05,
							Reasoning: "system has zero active participants",
							Scope:     &types.ActionScope{System: system}})
				}
			}
			return noViolation()
		},
	})

	r.Register(Principle{
		ID: "P44", Name: "Source Concentration", Category: "system_dynamics",
		Description: "Flow concentrated in a single named source/sink bucket signals an exploit-prone single point of failure.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			total := 0.0
			for _, v := range m.FlowBySource {
				total += v
			}
			if total == 0 {
				return noViolation()
			}
			source, flow, found := worstAbove(m.FlowBySource, total*0.8)
			if !found {
				return noViolation()
			}
			return violation(5, 0.55, 8, map[string]any{"source": source, "share": flow / total},
				types.SuggestedAction{ParameterType: "cap", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "flow concentrated in a single source or sink"})
		},
	})

	r.Register(Principle{
		ID: "P45", Name: "System Activity Stagnation", Category: "system_dynamics",
		Description: "Activity spread thinly and evenly across every system, none reaching a healthy floor, suggests overall stagnation.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if len(m.ActivityBySystem) == 0 {
				return noViolation()
			}
			for _, v := range m.ActivityBySystem {
				if v >= 1 {
					return noViolation()
				}
			}
			return violation(3, 0.4, 15, map[string]any{"systemCount": len(m.ActivityBySystem)},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "no system reaching a healthy activity floor"})
		},
	})
}
