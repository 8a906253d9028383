// Package executor applies an accepted ActionPlan to the host economy
// through a thin adapter interface and runs the per-tick rollback loop
// against every still-active plan. Execution is serialized by a mutex the
// way the reference's internal/execution package serializes order placement
// against a single venue connection.
package executor

import (
	"context"
	"math"
	"sync"

	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

// hardTTLTicks is the absolute cap on how long a plan may remain active
// regardless of its rollback condition ever triggering.
const hardTTLTicks = 200

// settleGraceTicks is how long past checkAfterTick a condition must hold
// before the plan is declared settled rather than rolled back.
const settleGraceTicks = 10

// Adapter is the host-provided boundary the Executor applies plans through.
// Hosts implement this to wire the engine to their actual economy state.
type Adapter interface {
	// GetState returns the host's current economy snapshot; cmd/agente's
	// optional pull-mode loop calls it to re-tick the engine.
	GetState(ctx context.Context) (types.EconomyState, error)
	// SetParam applies a concrete parameter change. scope may be nil for an
	// unscoped parameter.
	SetParam(ctx context.Context, key string, value float64, scope *types.ActionScope) error
}

// EventSource is an optional capability an Adapter may additionally
// implement, letting the engine pull the tick's economic events directly
// from the host rather than requiring them in the request body.
type EventSource interface {
	PendingEvents(ctx context.Context) ([]types.EconomicEvent, error)
}

// ValueSink receives a resolved parameter's authoritative current value
// whenever the Executor changes it, so the ParameterRegistry stays in sync
// with what was actually applied to the host — invariant I4:
// RegisteredParameter.currentValue[plan.parameter] == plan.targetValue
// immediately after apply, and == plan.originalValue after rollback.
type ValueSink interface {
	SetCurrentValue(key string, value float64)
}

// active is the bookkeeping the Executor keeps per in-flight plan.
type active struct {
	plan          *types.ActionPlan
	originalValue float64
	appliedAt     int
}

// Executor applies plans and evaluates rollback conditions.
type Executor struct {
	logger    *zap.Logger
	adapter   Adapter
	valueSink ValueSink

	mu    sync.Mutex
	plans map[string]*active // keyed by plan ID
}

// New builds an Executor bound to a host adapter.
func New(logger *zap.Logger, adapter Adapter) *Executor {
	return &Executor{
		logger:  logger.Named("executor"),
		adapter: adapter,
		plans:   map[string]*active{},
	}
}

// SetValueSink attaches the registry (or any ValueSink) that should be kept
// in sync with the host's authoritative parameter value on every apply and
// rollback. Optional: a nil sink (the default) simply skips the update.
func (e *Executor) SetValueSink(sink ValueSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.valueSink = sink
}

// Apply applies a single plan to the host, serialized against any concurrent
// Apply/EvaluateRollbacks call, and begins tracking it for rollback.
func (e *Executor) Apply(ctx context.Context, plan *types.ActionPlan, tick int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	originalValue := plan.CurrentValue
	if err := e.adapter.SetParam(ctx, plan.Parameter, plan.TargetValue, plan.Scope); err != nil {
		e.logger.Error("apply failed",
			zap.String("planId", plan.ID),
			zap.String("parameter", plan.Parameter),
			zap.Error(err),
		)
		return err
	}

	plan.AppliedAt = &tick
	e.plans[plan.ID] = &active{plan: plan, originalValue: originalValue, appliedAt: tick}
	if e.valueSink != nil {
		e.valueSink.SetCurrentValue(plan.Parameter, plan.TargetValue)
	}

	e.logger.Info("plan applied",
		zap.String("planId", plan.ID),
		zap.String("parameter", plan.Parameter),
		zap.Float64("target", plan.TargetValue),
	)
	return nil
}

// RollbackOutcome reports what happened to one active plan during an
// EvaluateRollbacks pass.
type RollbackOutcome struct {
	PlanID     string
	RolledBack bool
	Settled    bool
}

// EvaluateRollbacks runs the rollback loop against every active plan for the
// current tick's metrics, rolling back or settling plans as their
// conditions dictate. It returns one outcome per plan that changed state
// this call; plans still waiting produce no outcome.
func (e *Executor) EvaluateRollbacks(ctx context.Context, tick int, metrics types.EconomyMetrics) []RollbackOutcome {
	e.mu.Lock()
	snapshot := make([]*active, 0, len(e.plans))
	for _, a := range e.plans {
		snapshot = append(snapshot, a)
	}
	e.mu.Unlock()

	var outcomes []RollbackOutcome
	for _, a := range snapshot {
		outcome, settle := e.evaluateOne(ctx, a, tick, metrics)
		if settle {
			e.mu.Lock()
			delete(e.plans, a.plan.ID)
			e.mu.Unlock()
		}
		if outcome != nil {
			outcomes = append(outcomes, *outcome)
		}
	}
	return outcomes
}

// evaluateOne applies the rollback decision table to a single active plan.
// The returned bool is true whenever the plan should be removed from the
// active set (either rolled back or settled).
func (e *Executor) evaluateOne(ctx context.Context, a *active, tick int, metrics types.EconomyMetrics) (*RollbackOutcome, bool) {
	rc := a.plan.RollbackCondition

	if tick-a.appliedAt > hardTTLTicks {
		e.logger.Info("plan settled by hard ttl", zap.String("planId", a.plan.ID))
		return &RollbackOutcome{PlanID: a.plan.ID, Settled: true}, true
	}

	if tick < rc.CheckAfterTick {
		return nil, false
	}

	value := metricstore.ResolvePath(metrics, rc.Metric)

	triggered := math.IsNaN(value)
	if !triggered {
		switch rc.Direction {
		case types.RollbackBelow:
			triggered = value < rc.Threshold
		case types.RollbackAbove:
			triggered = value > rc.Threshold
		}
	}

	if triggered {
		if err := e.adapter.SetParam(ctx, a.plan.Parameter, a.originalValue, a.plan.Scope); err != nil {
			e.logger.Error("rollback apply failed",
				zap.String("planId", a.plan.ID),
				zap.Error(err),
			)
			// Leave the plan active; it will be retried on the next tick or
			// eventually settled by the hard TTL.
			return nil, false
		}
		if e.valueSink != nil {
			e.valueSink.SetCurrentValue(a.plan.Parameter, a.originalValue)
		}
		e.logger.Warn("plan rolled back",
			zap.String("planId", a.plan.ID),
			zap.String("metric", rc.Metric),
			zap.Float64("value", value),
		)
		return &RollbackOutcome{PlanID: a.plan.ID, RolledBack: true}, true
	}

	if tick > rc.CheckAfterTick+settleGraceTicks {
		e.logger.Info("plan settled", zap.String("planId", a.plan.ID))
		return &RollbackOutcome{PlanID: a.plan.ID, Settled: true}, true
	}

	return nil, false
}

// ActivePlans returns the IDs of plans currently tracked for rollback.
func (e *Executor) ActivePlans() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.plans))
	for id := range e.plans {
		ids = append(ids, id)
	}
	return ids
}
