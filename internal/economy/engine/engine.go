// Package engine orchestrates the five-stage control pipeline — Observer,
// Diagnoser, Simulator, Planner, Executor — plus the MetricStore,
// ParameterRegistry, and DecisionLog it depends on, into a single
// single-threaded cooperative tick processor. The mutex-around-the-whole-
// pipeline discipline is carried over from the reference orchestrator
// (internal/orchestrator/orchestrator.go), generalized from one mutex per
// concern to one mutex guarding the entire ProcessTick call, since the
// ordering guarantee here (record before diagnose before simulate/plan/
// execute/log, for a single adapter, one tick at a time) is strictly
// stronger than anything the reference needed.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atlas-desktop/agente/internal/economy/config"
	"github.com/atlas-desktop/agente/internal/economy/decisionlog"
	"github.com/atlas-desktop/agente/internal/economy/diagnoser"
	"github.com/atlas-desktop/agente/internal/economy/executor"
	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/observer"
	"github.com/atlas-desktop/agente/internal/economy/planner"
	"github.com/atlas-desktop/agente/internal/economy/principles"
	"github.com/atlas-desktop/agente/internal/economy/registry"
	"github.com/atlas-desktop/agente/internal/economy/simulator"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

// tickDeadline bounds how long a single ProcessTick call may run before the
// simulator/planner stage is abandoned in favor of a skipped_timeout result.
const tickDeadline = 10 * time.Second

// Engine wires the full pipeline together and serializes tick processing.
type Engine struct {
	logger *zap.Logger
	cfg    config.Config

	store      *metricstore.Store
	registry   *registry.Registry
	observer   *observer.Observer
	principles *principles.Registry
	diagnoser  *diagnoser.Diagnoser
	simulator  *simulator.Simulator
	planner    *planner.Planner
	executor   *executor.Executor
	decisions  *decisionlog.Log

	thresholds types.Thresholds

	mu sync.Mutex // serializes ProcessTick end to end, per invariant I1/I4
}

// New builds a fully wired Engine. adapter is the host boundary the
// Executor applies plans through.
func New(logger *zap.Logger, cfg config.Config, adapter executor.Adapter) *Engine {
	reg := registry.New(logger)
	store := metricstore.New(metricstore.Config{
		Capacity:     cfg.MetricStoreCapacity,
		MediumWindow: cfg.MediumWindow,
		CoarseWindow: cfg.CoarseWindow,
	})
	obs := observer.New(logger, store)
	principleReg := principles.NewRegistry()
	diag := diagnoser.New(logger, principleReg)
	sim := simulator.New(logger, reg)
	pl := planner.New(logger, reg, sim, planner.Config{
		Mode:         types.EngineMode(cfg.Mode),
		ForwardTicks: cfg.ForwardTicks,
	})
	exec := executor.New(logger, adapter)
	exec.SetValueSink(reg)
	decisions := decisionlog.New()

	return &Engine{
		logger:     logger.Named("engine"),
		cfg:        cfg,
		store:      store,
		registry:   reg,
		observer:   obs,
		principles: principleReg,
		diagnoser:  diag,
		simulator:  sim,
		planner:    pl,
		executor:   exec,
		decisions:  decisions,
		thresholds: cfg.Thresholds,
	}
}

// RegisterParameter exposes parameter registration to callers wiring up a
// host's concrete parameter set before the engine starts processing ticks.
func (e *Engine) RegisterParameter(p types.RegisteredParameter) {
	e.registry.Register(p)
}

// Registry exposes the parameter registry for inspection (e.g. a /principles
// or /config transport handler listing what's registered).
func (e *Engine) Registry() *registry.Registry { return e.registry }

// DecisionLog exposes the decision log for read-only transport queries.
func (e *Engine) DecisionLog() *decisionlog.Log { return e.decisions }

// MetricStore exposes the metric store for read-only transport queries.
func (e *Engine) MetricStore() *metricstore.Store { return e.store }

// Principles exposes the registered principle set, e.g. for a GET
// /principles listing endpoint.
func (e *Engine) Principles() *principles.Registry { return e.principles }

// SetMode switches the engine between autonomous and advisor mode.
func (e *Engine) SetMode(mode types.EngineMode) { e.planner.SetMode(mode) }

// Mode returns the engine's current mode.
func (e *Engine) Mode() types.EngineMode { return e.planner.Mode() }

// Lock / Unlock forward to the planner's lock list, for a POST /config call.
func (e *Engine) Lock(key string)   { e.planner.Lock(key) }
func (e *Engine) Unlock(key string) { e.planner.Unlock(key) }

// SetThresholds replaces the engine's threshold configuration, e.g. via
// POST /config. Takes effect starting with the next ProcessTick call.
func (e *Engine) SetThresholds(t types.Thresholds) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholds = t
}

// Constrain narrows the legal target range for a resolved parameter key,
// e.g. from a POST /config {constrain:[{param,min,max}]} call.
func (e *Engine) Constrain(param string, min, max float64) {
	e.planner.Constrain(param, min, max)
}

// ActivePlans returns the IDs of plans the Executor is currently tracking
// for rollback.
func (e *Engine) ActivePlans() []string {
	return e.executor.ActivePlans()
}

// Diagnose runs the Observer and Diagnoser stages against a state without
// recording metrics, planning, or executing anything — the side-effect-free
// path behind POST /diagnose and the WS "diagnose" message.
func (e *Engine) Diagnose(state types.EconomyState, events []types.EconomicEvent) (float64, []types.Diagnosis) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics := e.observer.Peek(state, events, state.PersonaDistribution)
	diagnoses := e.diagnoser.Diagnose(state.Tick, metrics, e.thresholds)
	return metricstore.HealthScore(metrics), diagnoses
}

// TickResult is everything the transport layer needs to report back to the
// host for one processed tick.
type TickResult struct {
	Tick             int
	Metrics          types.EconomyMetrics
	Diagnoses        []types.Diagnosis
	Plan             *types.ActionPlan
	Decision         types.DecisionEntry
	RollbackOutcomes []executor.RollbackOutcome
	HealthScore      float64
}

// ProcessTick runs one full pipeline pass for a host-submitted snapshot:
// record metrics, diagnose, simulate + plan + execute the top violation (if
// any), evaluate rollbacks for every still-active plan, and log the
// decision. No two calls to ProcessTick for the same Engine are ever in
// flight concurrently.
func (e *Engine) ProcessTick(ctx context.Context, state types.EconomyState, events []types.EconomicEvent, personaDistribution map[string]float64) (TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, tickDeadline)
	defer cancel()

	thresholds := e.thresholds

	// Stage 1: Observer, then MetricStore.record — happens-before everything
	// downstream for this tick.
	metrics := e.observer.Observe(state, events, personaDistribution)
	e.store.Record(metrics)

	// Stage 2: Diagnoser.
	diagnoses := e.diagnoser.Diagnose(state.Tick, metrics, thresholds)

	result := TickResult{
		Tick:        state.Tick,
		Metrics:     metrics,
		Diagnoses:   diagnoses,
		HealthScore: metricstore.HealthScore(metrics),
	}

	// Stages 3 + 4: Simulator (inside Planner) + Planner gate chain. No
	// diagnosis means no plan decision to log for this tick.
	if top, hasViolation := diagnoser.Top(diagnoses); hasViolation {
		decision, err := e.planAndExecute(ctx, top, metrics, thresholds)
		if err != nil {
			return result, err
		}
		result.Plan = decision.Plan
		result.Decision = decision.Entry
	}

	// Stage (E): rollback checks for every still-active plan, run after this
	// tick's own apply so a brand-new plan is never rolled back on the tick
	// it was applied. Each rollback is logged as its own rolled_back entry.
	result.RollbackOutcomes = e.executor.EvaluateRollbacks(ctx, state.Tick, metrics)
	for _, outcome := range result.RollbackOutcomes {
		if outcome.RolledBack || outcome.Settled {
			e.planner.RecordSettled()
		}
		if outcome.RolledBack {
			e.decisions.Record(state.Tick, nil, nil, types.ResultRolledBack,
				fmt.Sprintf("plan %s rolled back: watched metric crossed its threshold or resolved to NaN", outcome.PlanID), metrics)
		}
	}

	return result, nil
}

// plannedDecision bundles a Planner decision's resulting plan (if any) with
// the DecisionLog entry recorded for it.
type plannedDecision struct {
	Plan  *types.ActionPlan
	Entry types.DecisionEntry
}

// planAndExecute runs gate 2 onward: plans the top diagnosis, applies it if
// the engine is in autonomous mode and every gate passed, and records
// exactly one DecisionLog entry for the outcome.
func (e *Engine) planAndExecute(ctx context.Context, top types.Diagnosis, metrics types.EconomyMetrics, thresholds types.Thresholds) (plannedDecision, error) {
	select {
	case <-ctx.Done():
		entry := e.decisions.Record(top.Tick, &top, nil, types.ResultSkippedTimeout, "tick deadline exceeded before planning completed", metrics)
		return plannedDecision{Entry: entry}, nil
	default:
	}

	decision := e.planner.Plan(ctx, top, metrics, thresholds)

	if decision.Plan == nil {
		reason := fmt.Sprintf("skipped: %s", decision.SkipReason)
		entry := e.decisions.Record(top.Tick, &top, nil, skipResultFor(decision.SkipReason), reason, metrics)
		return plannedDecision{Entry: entry}, nil
	}

	if decision.Mode == types.ModeAdvisor {
		entry := e.decisions.Record(top.Tick, &top, decision.Plan, types.ResultSkippedAdvisorMode, "advisor mode: plan produced but not executed", metrics)
		return plannedDecision{Plan: decision.Plan, Entry: entry}, nil
	}

	if err := e.executor.Apply(ctx, decision.Plan, top.Tick); err != nil {
		e.planner.RecordSettled()
		entry := e.decisions.Record(top.Tick, &top, decision.Plan, types.ResultApplyFailed, err.Error(), metrics)
		return plannedDecision{Plan: decision.Plan, Entry: entry}, nil
	}

	entry := e.decisions.Record(top.Tick, &top, decision.Plan, types.ResultApplied,
		fmt.Sprintf("applied %s -> %.4f", decision.Plan.Parameter, decision.Plan.TargetValue), metrics)
	return plannedDecision{Plan: decision.Plan, Entry: entry}, nil
}

func skipResultFor(reason planner.SkipReason) types.DecisionResult {
	switch reason {
	case planner.SkipGracePeriod:
		return types.ResultSkippedGracePeriod
	case planner.SkipAdvisorMode:
		return types.ResultSkippedAdvisorMode
	case planner.SkipUnresolvedParameter:
		return types.ResultSkippedUnresolved
	case planner.SkipLocked:
		return types.ResultSkippedLocked
	case planner.SkipCooldown:
		return types.ResultSkippedCooldown
	case planner.SkipBudget:
		return types.ResultSkippedBudget
	case planner.SkipSimulationRejected:
		return types.ResultSkippedSimulation
	default:
		return types.ResultSkippedUnresolved
	}
}
