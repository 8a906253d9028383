package principles

import (
	"sort"

	"github.com/atlas-desktop/agente/internal/economy/types"
)

// registerResource adds principles about per-resource supply and pricing
// health, distinct from the aggregate supply-chain checks.
func registerResource(r *Registry) {
	r.Register(Principle{
		ID: "P46", Name: "Resource Oversupply", Category: "resource",
		Description: "A resource with runaway supply relative to others will collapse in value.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if len(m.SupplyByResource) < 2 {
				return noViolation()
			}
			total := 0.0
			for _, v := range m.SupplyByResource {
				total += v
			}
			avg := total / float64(len(m.SupplyByResource))
			resource, supply, found := worstAbove(m.SupplyByResource, avg*3)
			if !found {
				return noViolation()
			}
			return violation(3, 0.4, 15, map[string]any{"resource": resource, "supply": supply},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionDecrease, Magnitude: 0.1,
					Reasoning: "resource supply far above the cross-resource average"})
		},
	})

	r.Register(Principle{
		ID: "P47", Name: "Resource Undersupply", Category: "resource",
		Description: "A resource starved relative to others bottlenecks any recipe that depends on it.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if len(m.SupplyByResource) < 2 {
				return noViolation()
			}
			total := 0.0
			for _, v := range m.SupplyByResource {
				total += v
			}
			avg := total / float64(len(m.SupplyByResource))
			resource, supply, found := worstBelow(m.SupplyByResource, avg*0.1)
			if !found {
				return noViolation()
			}
			return violation(5, 0.55, 10, map[string]any{"resource": resource, "supply": supply},
				types.SuggestedAction{ParameterType: "yield", Direction: types.DirectionIncrease, Magnitude: 0.15,
					Reasoning: "resource supply far below the cross-resource average"})
		},
	})

	r.Register(Principle{
		ID: "P48", Name: "Resource Price Divergence", Category: "resource",
		Description: "A resource priced wildly differently across currencies signals an unhedged cross-currency gap.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			perResource := map[string][]float64{}
			for _, prices := range m.PricesByCurrency {
				for resource, price := range prices {
					perResource[resource] = append(perResource[resource], price)
				}
			}
			for _, resource := range sortedResourceKeys(perResource) {
				values := perResource[resource]
				if len(values) < 2 {
					continue
				}
				lo, hi := values[0], values[0]
				for _, v := range values {
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
				if lo <= 0 || hi/lo < 2 {
					continue
				}
				return violation(4, 0.5, 6, map[string]any{"resource": resource, "ratio": hi / lo},
					types.SuggestedAction{ParameterType: "fee", Direction: types.DirectionIncrease, Magnitude: 0.1,
						Reasoning: "resource priced inconsistently across currencies"})
			}
			return noViolation()
		},
	})

	r.Register(Principle{
		ID: "P49", Name: "Capacity Waste", Category: "resource",
		Description: "Very low capacity usage alongside available production budget indicates wasted throughput.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.CapacityUsage == 0 || m.CapacityUsage > 0.1 {
				return noViolation()
			}
			return violation(2, 0.3, 20, map[string]any{"capacityUsage": m.CapacityUsage},
				types.SuggestedAction{ParameterType: "cap", Direction: types.DirectionDecrease, Magnitude: 0.05,
					Reasoning: "capacity usage far below available budget"})
		},
	})
}

func sortedResourceKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
