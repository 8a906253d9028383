package executor_test

import (
	"context"
	"math"
	"testing"

	"github.com/atlas-desktop/agente/internal/economy/executor"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	setParamCalls []paramCall
	failNext      bool
}

type paramCall struct {
	key   string
	value float64
}

func (f *fakeAdapter) GetState(ctx context.Context) (types.EconomyState, error) {
	return types.EconomyState{}, nil
}

func (f *fakeAdapter) SetParam(ctx context.Context, key string, value float64, scope *types.ActionScope) error {
	f.setParamCalls = append(f.setParamCalls, paramCall{key: key, value: value})
	return nil
}

func samplePlan(checkAfterTick int) *types.ActionPlan {
	return &types.ActionPlan{
		ID:           "plan-1",
		Parameter:    "craftingCost",
		CurrentValue: 100,
		TargetValue:  115,
		RollbackCondition: types.RollbackCondition{
			Metric:         "avgSatisfaction",
			Direction:      types.RollbackBelow,
			Threshold:      40,
			CheckAfterTick: checkAfterTick,
		},
	}
}

// TestRollbackOnMetricNaNFailSafe is scenario 4: a plan applied at tick 50
// with checkAfterTick 60 must roll back (restoring the original value) if
// the watched metric resolves to NaN at the check tick (e.g. pool sizes
// omitted from the submitted state).
func TestRollbackOnMetricNaNFailSafe(t *testing.T) {
	adapter := &fakeAdapter{}
	ex := executor.New(zap.NewNop(), adapter)
	plan := samplePlan(60)

	if err := ex.Apply(context.Background(), plan, 50); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	// The watched avgSatisfaction metric is NaN in this snapshot, simulating
	// an incomplete host submission.
	metrics := types.EconomyMetrics{Tick: 61}
	metrics.AvgSatisfaction = math.NaN()

	outcomes := ex.EvaluateRollbacks(context.Background(), 61, metrics)

	if len(outcomes) != 1 || !outcomes[0].RolledBack {
		t.Fatalf("expected a rollback outcome, got %+v", outcomes)
	}
	if len(adapter.setParamCalls) != 2 {
		t.Fatalf("expected apply + rollback SetParam calls, got %d", len(adapter.setParamCalls))
	}
	last := adapter.setParamCalls[len(adapter.setParamCalls)-1]
	if last.key != "craftingCost" || last.value != 100 {
		t.Fatalf("expected rollback to restore the original value 100, got %+v", last)
	}
	if len(ex.ActivePlans()) != 0 {
		t.Fatalf("expected the rolled-back plan to no longer be tracked, got %v", ex.ActivePlans())
	}
}

func TestPlanSettlesWhenConditionNeverTriggersPastGrace(t *testing.T) {
	adapter := &fakeAdapter{}
	ex := executor.New(zap.NewNop(), adapter)
	plan := samplePlan(60)
	ex.Apply(context.Background(), plan, 50)

	healthy := types.EconomyMetrics{Tick: 71, AvgSatisfaction: 80}
	outcomes := ex.EvaluateRollbacks(context.Background(), 71, healthy)

	if len(outcomes) != 1 || !outcomes[0].Settled {
		t.Fatalf("expected the plan to settle once past checkAfterTick+settleGrace with a healthy metric, got %+v", outcomes)
	}
}

func TestPlanWaitsBeforeCheckAfterTick(t *testing.T) {
	adapter := &fakeAdapter{}
	ex := executor.New(zap.NewNop(), adapter)
	plan := samplePlan(60)
	ex.Apply(context.Background(), plan, 50)

	outcomes := ex.EvaluateRollbacks(context.Background(), 55, types.EconomyMetrics{Tick: 55, AvgSatisfaction: 10})
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcome before checkAfterTick, got %+v", outcomes)
	}
	if len(ex.ActivePlans()) != 1 {
		t.Fatalf("expected the plan to remain active while waiting, got %v", ex.ActivePlans())
	}
}

func TestPlanSettledByHardTTLRegardlessOfCondition(t *testing.T) {
	adapter := &fakeAdapter{}
	ex := executor.New(zap.NewNop(), adapter)
	plan := samplePlan(60)
	ex.Apply(context.Background(), plan, 0)

	outcomes := ex.EvaluateRollbacks(context.Background(), 250, types.EconomyMetrics{Tick: 250, AvgSatisfaction: 10})
	if len(outcomes) != 1 || !outcomes[0].Settled {
		t.Fatalf("expected a hard-TTL settle outcome, got %+v", outcomes)
	}
	// A hard-TTL settle must not also have called SetParam a second time
	// (it is not a rollback).
	if len(adapter.setParamCalls) != 1 {
		t.Fatalf("expected only the original apply call, got %d", len(adapter.setParamCalls))
	}
}

func TestRollbackTriggersOnThresholdCrossing(t *testing.T) {
	adapter := &fakeAdapter{}
	ex := executor.New(zap.NewNop(), adapter)
	plan := samplePlan(60)
	ex.Apply(context.Background(), plan, 50)

	outcomes := ex.EvaluateRollbacks(context.Background(), 61, types.EconomyMetrics{Tick: 61, AvgSatisfaction: 30})
	if len(outcomes) != 1 || !outcomes[0].RolledBack {
		t.Fatalf("expected a rollback when avgSatisfaction drops below the 40 threshold, got %+v", outcomes)
	}
}

type fakeValueSink struct {
	values map[string]float64
}

func (f *fakeValueSink) SetCurrentValue(key string, value float64) {
	if f.values == nil {
		f.values = map[string]float64{}
	}
	f.values[key] = value
}

// TestValueSinkTracksApplyThenRollback covers invariant I4: the attached
// ValueSink (the ParameterRegistry, in production) must reflect the
// plan's targetValue immediately after apply, and the originalValue again
// immediately after rollback.
func TestValueSinkTracksApplyThenRollback(t *testing.T) {
	adapter := &fakeAdapter{}
	ex := executor.New(zap.NewNop(), adapter)
	sink := &fakeValueSink{}
	ex.SetValueSink(sink)

	plan := samplePlan(60)
	if err := ex.Apply(context.Background(), plan, 50); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if got := sink.values["craftingCost"]; got != 115 {
		t.Fatalf("expected sink to hold targetValue 115 after apply, got %v", got)
	}

	ex.EvaluateRollbacks(context.Background(), 61, types.EconomyMetrics{Tick: 61, AvgSatisfaction: 30})
	if got := sink.values["craftingCost"]; got != 100 {
		t.Fatalf("expected sink to hold originalValue 100 after rollback, got %v", got)
	}
}
