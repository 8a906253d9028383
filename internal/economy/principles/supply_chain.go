package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerSupplyChain adds principles watching production, resource
// depletion, and the tap:sink balance of the production pipeline.
func registerSupplyChain(r *Registry) {
	r.Register(Principle{
		ID: "P1", Name: "Production Shortfall", Category: "supply_chain",
		Description: "Production index falling below the replacement rate signals an under-supplied resource economy.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.ProductionIndex == 0 || m.ProductionIndex >= 1.0/t.ReplacementRateMultiplier {
				return noViolation()
			}
			return violation(5, 0.6, 10, map[string]any{"productionIndex": m.ProductionIndex},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionIncrease, Magnitude: 0.15,
					Reasoning: "production index below sustainable replacement rate"})
		},
	})

	r.Register(Principle{
		ID: "P2", Name: "Resource Depletion", Category: "supply_chain",
		Description: "A resource's total supply trending to near zero signals an unsustainable extraction rate.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			resource, supply, found := worstBelow(m.SupplyByResource, 1.0)
			if !found {
				return noViolation()
			}
			return violation(8, 0.75, 4, map[string]any{"resource": resource, "supply": supply},
				types.SuggestedAction{ParameterType: "cost", Direction: types.DirectionIncrease, Magnitude: 0.2,
					Reasoning: "resource supply near depletion"})
		},
	})

	r.Register(Principle{
		ID: "P3", Name: "Extraction Ratio", Category: "supply_chain",
		Description: "Extraction ratio above one means resources are consumed faster than produced.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.ExtractionRatio <= 1.0 {
				return noViolation()
			}
			return violation(6, 0.65, 8, map[string]any{"extractionRatio": m.ExtractionRatio},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "extraction outpacing production"})
		},
	})

	r.Register(Principle{
		ID: "P4", Name: "Capacity Overuse", Category: "supply_chain",
		Description: "Capacity usage approaching saturation risks content starvation for new participants.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.CapacityUsage < t.ReplacementRateMultiplier {
				return noViolation()
			}
			return violation(4, 0.5, 15, map[string]any{"capacityUsage": m.CapacityUsage},
				types.SuggestedAction{ParameterType: "cap", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "capacity usage near saturation"})
		},
	})

	r.Register(Principle{
		ID: "P5", Name: "Stale Content", Category: "supply_chain",
		Description: "Content drop age growing unchecked indicates the production pipeline has stalled.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.ContentDropAge < 30 {
				return noViolation()
			}
			return violation(3, 0.5, 20, map[string]any{"contentDropAge": m.ContentDropAge},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionIncrease, Magnitude: 0.1,
					Reasoning: "no new content drop in an extended window"})
		},
	})
}
