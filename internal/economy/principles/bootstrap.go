package principles

import "github.com/atlas-desktop/agente/internal/economy/types"

// registerBootstrap adds principles relevant only in a fresh economy's
// early ticks, where normal thresholds would misfire.
func registerBootstrap(r *Registry) {
	r.Register(Principle{
		ID: "P16", Name: "Cold Start Starvation", Category: "bootstrap",
		Description: "Very low total supply alongside low satisfaction in the opening ticks signals a slow bootstrap.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.Tick >= t.GracePeriod || m.TotalSupply > 0 || m.AvgSatisfaction >= t.SatisfactionFloor {
				return noViolation()
			}
			return violation(4, 0.5, 10, map[string]any{"tick": m.Tick, "totalSupply": m.TotalSupply},
				types.SuggestedAction{ParameterType: "reward", Direction: types.DirectionIncrease, Magnitude: 0.2,
					Reasoning: "economy has no circulating supply during bootstrap window"})
		},
	})

	r.Register(Principle{
		ID: "P17", Name: "Empty Pool at Launch", Category: "bootstrap",
		Description: "Prize or reserve pools still empty well into the bootstrap window stall early engagement loops.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.Tick >= t.GracePeriod {
				return noViolation()
			}
			for currency, pools := range m.PoolSizesByCurrency {
				for pool, size := range pools {
					if size == 0 {
						return violation(3, 0.4, 10, map[string]any{"currency": currency, "pool": pool},
							types.SuggestedAction{ParameterType: "faucet", Direction: types.DirectionIncrease, Magnitude: 0.2,
								Reasoning: "pool remains empty during the bootstrap window",
								Scope:     &types.ActionScope{Currency: currency}})
					}
				}
			}
			return noViolation()
		},
	})

	r.Register(Principle{
		ID: "P18", Name: "Premature Scarcity Pressure", Category: "bootstrap",
		Description: "A sink-heavy net flow during the grace period punishes the first cohort before the economy matures.",
		Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			if m.Tick >= t.GracePeriod || m.NetFlow >= 0 {
				return noViolation()
			}
			return violation(4, 0.5, 10, map[string]any{"netFlow": m.NetFlow},
				types.SuggestedAction{ParameterType: "cost", Direction: types.DirectionDecrease, Magnitude: 0.15,
					Reasoning: "net sink pressure applied before the economy has bootstrapped"})
		},
	})
}
