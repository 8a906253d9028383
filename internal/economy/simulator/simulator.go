// Package simulator runs Monte-Carlo forward projections of a proposed
// action before the Planner is allowed to commit to it. The iteration
// structure — a fixed worker count fanning out over a job count larger than
// the worker count, each worker carrying its own PRNG seeded independently —
// mirrors the reference's internal/montecarlo/simulator.go
// runParallelSimulations, translated from a WaitGroup/channel pool onto
// golang.org/x/sync/errgroup with at most 8 iterations in flight.
// Iterations never return an error; a cancelled context stops iterations
// that have not started yet.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/registry"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultForwardTicks is how far ahead a simulation projects by default.
const DefaultForwardTicks = 20

// Simulator runs Monte-Carlo forward projections for a proposed action.
type Simulator struct {
	logger   *zap.Logger
	registry *registry.Registry
}

// New builds a Simulator. registry may be nil, in which case flow impact is
// always inferred from the action's parameterType.
func New(logger *zap.Logger, reg *registry.Registry) *Simulator {
	return &Simulator{logger: logger.Named("simulator"), registry: reg}
}

// Request bundles the inputs a single Simulate call needs.
type Request struct {
	Action       types.SuggestedAction
	Baseline     types.EconomyMetrics
	Thresholds   types.Thresholds
	StartTick    int
	ForwardTicks int
	Iterations   int
}

// Simulate runs the configured number of Monte-Carlo iterations and
// aggregates them into a SimulationResult. It never returns an error for a
// well-formed request; a cancelled context yields only the iterations that
// completed, and Iterations reports that count. No minimum completed count
// is enforced.
func (s *Simulator) Simulate(ctx context.Context, req Request) types.SimulationResult {
	forwardTicks := req.ForwardTicks
	if forwardTicks <= 0 {
		forwardTicks = DefaultForwardTicks
	}
	iterations := req.Iterations
	if iterations < req.Thresholds.SimulationMinIterations {
		iterations = req.Thresholds.SimulationMinIterations
	}
	if iterations <= 0 {
		iterations = 100
	}

	impact := s.resolveFlowImpact(req.Action)

	endpoints := make([]types.EconomyMetrics, iterations)
	overshootCount := make([]bool, iterations)
	done := make([]bool, iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i := 0; i < iterations; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
			endpoint, crossed := s.projectOne(req.Baseline, req.Action, impact, req.Thresholds, forwardTicks, rng)
			endpoints[i] = endpoint
			overshootCount[i] = crossed
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	completed := make([]types.EconomyMetrics, 0, iterations)
	crossings := 0
	for i, m := range endpoints {
		if !done[i] {
			continue
		}
		completed = append(completed, m)
		if overshootCount[i] {
			crossings++
		}
	}

	p10 := percentileMetrics(completed, 0.10)
	p50 := percentileMetrics(completed, 0.50)
	p90 := percentileMetrics(completed, 0.90)
	mean := meanMetrics(completed)

	baselineHealth := metricstore.HealthScore(req.Baseline)
	p50Health := metricstore.HealthScore(p50)

	estimatedLag := estimateLag(req.Action)
	estimatedEffectTick := req.StartTick + estimatedLag

	targetSeries := targetMetricSeries(completed, req.Action)
	sort.Float64s(targetSeries)
	ciLo, ciHi := percentileOf(targetSeries, 0.10), percentileOf(targetSeries, 0.90)

	overshootRisk := 0.0
	if len(completed) > 0 {
		overshootRisk = float64(crossings) / float64(len(completed))
	}

	return types.SimulationResult{
		ProposedAction:       req.Action,
		Iterations:           len(completed),
		ForwardTicks:         forwardTicks,
		OutcomeP10:           p10,
		OutcomeP50:           p50,
		OutcomeP90:           p90,
		OutcomeMean:          mean,
		NetImprovement:       p50Health > baselineHealth,
		NoNewProblems:        !crossesCriticalThreshold(p50, req.Thresholds),
		ConfidenceIntervalLo: ciLo,
		ConfidenceIntervalHi: ciHi,
		EstimatedEffectTick:  estimatedEffectTick,
		OvershootRisk:        overshootRisk,
	}
}

// resolveFlowImpact implements the three-step resolution order from the
// design note: resolvedParameter lookup, then scope-based registry
// resolution, then inference from parameterType.
func (s *Simulator) resolveFlowImpact(action types.SuggestedAction) types.FlowImpact {
	if s.registry != nil && action.ResolvedParameter != "" {
		if impact, ok := s.registry.GetFlowImpact(action.ResolvedParameter); ok && impact != "" {
			return impact
		}
	}
	if s.registry != nil && action.Scope != nil {
		if p, ok := s.registry.Resolve(action.ParameterType, action.Scope); ok && p.FlowImpact != "" {
			return p.FlowImpact
		}
	}
	switch action.ParameterType {
	case "cost", "fee", "penalty":
		return types.FlowSink
	case "reward":
		return types.FlowFaucet
	case "yield":
		return types.FlowMixed
	case "cap", "multiplier":
		return types.FlowNeutral
	default:
		return types.FlowNeutral
	}
}

// projectOne runs a single Monte-Carlo iteration forward by forwardTicks
// steps, applying the flow-impact model per step plus Gaussian noise, and
// reports the final metrics snapshot along with whether the action's
// targeted metric crossed or reversed sign at any step.
func (s *Simulator) projectOne(baseline types.EconomyMetrics, action types.SuggestedAction, impact types.FlowImpact, t types.Thresholds, forwardTicks int, rng *rand.Rand) (types.EconomyMetrics, bool) {
	m := cloneMetrics(baseline)
	sign := -1.0
	if action.Direction == types.DirectionDecrease {
		sign = 1.0
	}

	dominantRoleCount := dominantRoleCount(baseline, t)
	startingSign := math.Signbit(m.NetFlow)
	crossed := false

	volatility := math.Abs(m.InflationRate) + 0.01

	for step := 0; step < forwardTicks; step++ {
		switch impact {
		case types.FlowSink:
			m.NetFlow += sign * m.NetFlow * 0.2 * action.Magnitude
		case types.FlowFaucet:
			m.NetFlow += -sign * dominantRoleCount * 0.3 * action.Magnitude
		case types.FlowMixed:
			m.NetFlow += sign * m.FaucetVolume * 0.15 * action.Magnitude
		case types.FlowNeutral:
			m.NetFlow += sign * dominantRoleCount * 0.5 * action.Magnitude * 0.1
		case types.FlowFriction:
			m.Velocity = math.Max(0, m.Velocity-0.05*action.Magnitude)
		case types.FlowRedistribution:
			m.GiniCoefficient = math.Max(0, m.GiniCoefficient-0.01*action.Magnitude)
		}

		m.TotalSupply += m.NetFlow
		if m.TotalSupply < 0 {
			m.TotalSupply = 0
		}

		noise := rng.NormFloat64() * volatility
		m.NetFlow += noise
		m.InflationRate = clamp(m.InflationRate+rng.NormFloat64()*0.01, -1, 1)
		m.AvgSatisfaction = clamp(m.AvgSatisfaction+rng.NormFloat64()*1.5, 0, 100)
		m.GiniCoefficient = clamp(m.GiniCoefficient+rng.NormFloat64()*0.005, 0, 1)
		m.Velocity = math.Max(0, m.Velocity+rng.NormFloat64()*0.02)

		if math.Signbit(m.NetFlow) != startingSign {
			crossed = true
		}
	}
	m.Tick = baseline.Tick + forwardTicks
	return m, crossed
}

// dominantRoleCount returns the population count of the configured dominant
// role(s), falling back to total agent count when none are configured or
// found — the flow-impact formulas need *some* population scale even with a
// bare thresholds configuration.
func dominantRoleCount(m types.EconomyMetrics, t types.Thresholds) float64 {
	if len(t.DominantRoles) == 0 {
		return m.TotalAgents
	}
	total := 0.0
	found := false
	for _, role := range t.DominantRoles {
		if v, ok := m.PopulationByRole[role]; ok {
			total += v
			found = true
		}
	}
	if !found {
		return m.TotalAgents
	}
	return total
}

// estimateLag returns a fixed, conservative lag of 10 ticks; the
// diagnosis's own estimatedLag is not consulted here.
func estimateLag(action types.SuggestedAction) int {
	// SuggestedAction itself doesn't carry estimatedLag (that lives on the
	// Diagnosis/PrincipleResult); callers that have a Diagnosis should prefer
	// its EstimatedLag. This fallback covers direct Simulate calls (e.g.
	// tests) constructed from a bare action.
	return 10
}

// targetMetricSeries extracts the scalar the action is meant to move, per
// iteration endpoint, for confidence-interval purposes.
func targetMetricSeries(endpoints []types.EconomyMetrics, action types.SuggestedAction) []float64 {
	values := make([]float64, 0, len(endpoints))
	for _, m := range endpoints {
		switch action.ParameterType {
		case "cost", "fee", "penalty":
			values = append(values, m.NetFlow)
		case "reward", "yield":
			values = append(values, m.AvgSatisfaction)
		case "redistribution":
			values = append(values, m.GiniCoefficient)
		default:
			values = append(values, m.NetFlow)
		}
	}
	return values
}

func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// crossesCriticalThreshold is a conservative, cheap stand-in for "no metric
// crosses a principle's critical threshold newly at p50": it checks the
// handful of metrics that feed the registered principles' critical bands
// directly, rather than re-running the full principle set against the
// projected snapshot.
func crossesCriticalThreshold(m types.EconomyMetrics, t types.Thresholds) bool {
	if m.GiniCoefficient >= t.GiniRed {
		return true
	}
	if t.ArbitrageIndexCritical > 0 && m.ArbitrageIndex >= t.ArbitrageIndexCritical {
		return true
	}
	if m.AvgSatisfaction > 0 && m.AvgSatisfaction < t.SatisfactionFloor*0.5 {
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cloneMetrics(m types.EconomyMetrics) types.EconomyMetrics {
	clone := m
	clone.PopulationByRole = copyMap(m.PopulationByRole)
	clone.SupplyByResource = copyMap(m.SupplyByResource)
	clone.FlowBySystem = copyMap(m.FlowBySystem)
	clone.FlowBySource = copyMap(m.FlowBySource)
	clone.Custom = copyMap(m.Custom)
	return clone
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
