package planner_test

import (
	"context"
	"testing"

	"github.com/atlas-desktop/agente/internal/economy/planner"
	"github.com/atlas-desktop/agente/internal/economy/registry"
	"github.com/atlas-desktop/agente/internal/economy/simulator"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

func newTestPlanner(t *testing.T, mode types.EngineMode) *planner.Planner {
	t.Helper()
	reg := registry.New(zap.NewNop())
	sim := simulator.New(zap.NewNop(), reg)
	return planner.New(zap.NewNop(), reg, sim, planner.Config{Mode: mode, ForwardTicks: 20})
}

func inflationaryDiagnosis(tick int) types.Diagnosis {
	return types.Diagnosis{
		PrincipleID:   "P12",
		PrincipleName: "Inflationary Currency",
		Category:      "currency",
		Tick:          tick,
		Violation: types.PrincipleResult{
			Violated:     true,
			Severity:     5,
			Confidence:   0.8,
			EstimatedLag: 5,
			SuggestedAction: &types.SuggestedAction{
				ParameterType: "cost",
				Direction:     types.DirectionIncrease,
				Magnitude:     0.15,
				Scope:         &types.ActionScope{Currency: "gold"},
			},
		},
	}
}

// TestGracePeriodBlocksAction is scenario 2: at tick 10 with gracePeriod 50,
// the planner must skip before ever invoking the simulator.
func TestGracePeriodBlocksAction(t *testing.T) {
	p := newTestPlanner(t, types.ModeAutonomous)
	thresholds := types.DefaultThresholds()
	thresholds.GracePeriod = 50

	metrics := types.EconomyMetrics{Tick: 10, NetFlow: 15, AvgSatisfaction: 70, TotalAgents: 100}
	decision := p.Plan(context.Background(), inflationaryDiagnosis(10), metrics, thresholds)

	if decision.Plan != nil {
		t.Fatalf("expected no plan during the grace period, got %+v", decision.Plan)
	}
	if decision.SkipReason != planner.SkipGracePeriod {
		t.Fatalf("expected SkipGracePeriod, got %v", decision.SkipReason)
	}
}

// TestCooldownBlocksSecondSameTypePlan is scenario 3: a second same-type
// plan within cooldownTicks of the first application is skipped.
func TestCooldownBlocksSecondSameTypePlan(t *testing.T) {
	p := newTestPlanner(t, types.ModeAutonomous)
	thresholds := types.DefaultThresholds()
	thresholds.GracePeriod = 0
	thresholds.CooldownTicks = 15

	metricsAt := func(tick int) types.EconomyMetrics {
		return types.EconomyMetrics{Tick: tick, NetFlow: 15, AvgSatisfaction: 70, TotalAgents: 100}
	}

	first := p.Plan(context.Background(), inflationaryDiagnosis(100), metricsAt(100), thresholds)
	if first.Plan == nil {
		t.Fatalf("expected the first application at tick 100 to produce a plan, got skip=%v", first.SkipReason)
	}

	second := p.Plan(context.Background(), inflationaryDiagnosis(105), metricsAt(105), thresholds)
	if second.Plan != nil {
		t.Fatalf("expected tick 105 (within cooldown) to be skipped, got a plan")
	}
	if second.SkipReason != planner.SkipCooldown {
		t.Fatalf("expected SkipCooldown, got %v", second.SkipReason)
	}

	third := p.Plan(context.Background(), inflationaryDiagnosis(115), metricsAt(115), thresholds)
	if third.Plan == nil {
		t.Fatalf("expected tick 115 (past cooldown) to produce a plan, got skip=%v", third.SkipReason)
	}
}

func TestAdvisorModeBuildsPlanButDoesNotCountAgainstBudget(t *testing.T) {
	p := newTestPlanner(t, types.ModeAdvisor)
	thresholds := types.DefaultThresholds()
	thresholds.GracePeriod = 0

	metrics := types.EconomyMetrics{Tick: 100, NetFlow: 15, AvgSatisfaction: 70, TotalAgents: 100}
	decision := p.Plan(context.Background(), inflationaryDiagnosis(100), metrics, thresholds)

	if decision.Plan == nil {
		t.Fatalf("expected advisor mode to still build a plan for inspection, got skip=%v", decision.SkipReason)
	}
	if p.ActivePlanCount() != 0 {
		t.Fatalf("expected advisor-mode plans to not count against the active-plan budget, got %d", p.ActivePlanCount())
	}
}

func TestLockedParameterBlocksPlan(t *testing.T) {
	reg := registry.New(zap.NewNop())
	reg.Register(types.RegisteredParameter{Key: "craftingCost", Type: "cost", Scope: &types.ActionScope{Currency: "gold"}})
	sim := simulator.New(zap.NewNop(), reg)
	p := planner.New(zap.NewNop(), reg, sim, planner.Config{Mode: types.ModeAutonomous, ForwardTicks: 20})
	p.Lock("craftingCost")

	thresholds := types.DefaultThresholds()
	thresholds.GracePeriod = 0
	metrics := types.EconomyMetrics{Tick: 100, NetFlow: 15, AvgSatisfaction: 70, TotalAgents: 100}

	decision := p.Plan(context.Background(), inflationaryDiagnosis(100), metrics, thresholds)
	if decision.Plan != nil {
		t.Fatalf("expected a locked parameter to block the plan, got %+v", decision.Plan)
	}
	if decision.SkipReason != planner.SkipLocked {
		t.Fatalf("expected SkipLocked, got %v", decision.SkipReason)
	}
}

func TestConstrainClampsTargetValue(t *testing.T) {
	reg := registry.New(zap.NewNop())
	reg.Register(types.RegisteredParameter{Key: "craftingCost", Type: "cost", Scope: &types.ActionScope{Currency: "gold"}})
	reg.SetCurrentValue("craftingCost", 100)
	sim := simulator.New(zap.NewNop(), reg)
	p := planner.New(zap.NewNop(), reg, sim, planner.Config{Mode: types.ModeAutonomous, ForwardTicks: 20})
	p.Constrain("craftingCost", 100, 105) // below the unconstrained target of 115

	thresholds := types.DefaultThresholds()
	thresholds.GracePeriod = 0
	metrics := types.EconomyMetrics{Tick: 100, NetFlow: 15, AvgSatisfaction: 70, TotalAgents: 100}

	diag := inflationaryDiagnosis(100)
	diag.Violation.SuggestedAction.Scope = &types.ActionScope{Currency: "gold"}
	decision := p.Plan(context.Background(), diag, metrics, thresholds)

	if decision.Plan == nil {
		t.Fatalf("expected a plan, got skip=%v", decision.SkipReason)
	}
	if decision.Plan.TargetValue > 105 {
		t.Fatalf("expected Constrain to clamp targetValue to 105, got %v", decision.Plan.TargetValue)
	}
}
