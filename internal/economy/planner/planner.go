// Package planner turns a tick's top Diagnosis into a gated, simulated
// ActionPlan, or rejects it with a logged reason. The gate chain is the
// engine's safety layer: every gate must pass in order before a plan is
// handed to the Executor. Bookkeeping (last-applied ticks, active-plan
// counting) follows the reference orchestrator's mutex-guarded state
// pattern (internal/orchestrator/orchestrator.go).
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/atlas-desktop/agente/internal/economy/registry"
	"github.com/atlas-desktop/agente/internal/economy/simulator"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SkipReason names why a candidate diagnosis did not become a plan.
type SkipReason string

const (
	SkipGracePeriod           SkipReason = "grace_period"
	SkipAdvisorMode           SkipReason = "advisor_mode"
	SkipUnresolvedParameter   SkipReason = "unresolved_parameter"
	SkipLocked                SkipReason = "locked"
	SkipCooldown              SkipReason = "cooldown"
	SkipBudget                SkipReason = "budget"
	SkipSimulationRejected    SkipReason = "simulation_rejected"
)

// Decision is the Planner's verdict for one diagnosis: either a Plan, or a
// SkipReason explaining why none was produced.
type Decision struct {
	Plan       *types.ActionPlan
	SkipReason SkipReason
	Mode       types.EngineMode
}

// Config holds the Planner's tunable knobs, independent of Thresholds (which
// the caller passes to each Plan call).
type Config struct {
	Mode         types.EngineMode
	LockedKeys   map[string]bool
	ForwardTicks int
}

// Planner gates a diagnosis through the seven-step chain and, if it
// survives, builds an ActionPlan.
type Planner struct {
	logger     *zap.Logger
	registry   *registry.Registry
	simulator  *simulator.Simulator
	cfg        Config

	mu               sync.Mutex
	lastApplied      map[string]int // canonicalized (parameterType+scope) -> tick
	activePlanCount  int
	constraints      map[string][2]float64 // resolved parameter key -> [min, max]
}

// New builds a Planner.
func New(logger *zap.Logger, reg *registry.Registry, sim *simulator.Simulator, cfg Config) *Planner {
	if cfg.LockedKeys == nil {
		cfg.LockedKeys = map[string]bool{}
	}
	return &Planner{
		logger:      logger.Named("planner"),
		registry:    reg,
		simulator:   sim,
		cfg:         cfg,
		lastApplied: map[string]int{},
		constraints: map[string][2]float64{},
	}
}

// Constrain narrows the legal range a future plan's targetValue may fall
// into for the given resolved parameter key, e.g. from a POST /config
// {constrain:[{param,min,max}]} call. Min == max == 0 clears the bound.
func (p *Planner) Constrain(param string, min, max float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if min == 0 && max == 0 {
		delete(p.constraints, param)
		return
	}
	p.constraints[param] = [2]float64{min, max}
}

// SetMode switches between autonomous and advisor mode, e.g. in response to
// a POST /config call.
func (p *Planner) SetMode(mode types.EngineMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Mode = mode
}

// Mode returns the current engine mode.
func (p *Planner) Mode() types.EngineMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.Mode
}

// Lock marks a concrete parameter key as locked, preventing any plan from
// targeting it until Unlock is called.
func (p *Planner) Lock(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.LockedKeys[key] = true
}

// Unlock reverses Lock.
func (p *Planner) Unlock(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cfg.LockedKeys, key)
}

// ActivePlanCount returns the number of plans the Planner currently
// considers in flight (applied but not yet settled or rolled back).
func (p *Planner) ActivePlanCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activePlanCount
}

// RecordSettled decrements the active-plan count when a plan settles or
// rolls back, never going below zero.
func (p *Planner) RecordSettled() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activePlanCount > 0 {
		p.activePlanCount--
	}
}

// Plan gates diagnosis through the seven ordered checks and, if every gate
// passes, runs the Simulator and returns a ready-to-execute ActionPlan.
func (p *Planner) Plan(ctx context.Context, diagnosis types.Diagnosis, metrics types.EconomyMetrics, thresholds types.Thresholds) Decision {
	action := diagnosis.Violation.SuggestedAction
	if action == nil {
		return Decision{SkipReason: SkipUnresolvedParameter, Mode: p.Mode()}
	}
	// Gate 1: grace period.
	if metrics.Tick < thresholds.GracePeriod {
		p.logSkip(diagnosis, SkipGracePeriod)
		return Decision{SkipReason: SkipGracePeriod, Mode: p.Mode()}
	}

	mode := p.Mode()

	// Gate 3: parameter resolution (evaluated before the mode gate reports,
	// since advisor-mode plans still need a resolved parameter to be useful
	// for logging/inspection).
	resolvedKey, resolved := p.resolveParameter(action)
	if !resolved && p.registry != nil && p.registry.Len() > 0 {
		p.logSkip(diagnosis, SkipUnresolvedParameter)
		return Decision{SkipReason: SkipUnresolvedParameter, Mode: mode}
	}

	// Gate 4: lock list.
	p.mu.Lock()
	locked := p.cfg.LockedKeys[resolvedKey]
	p.mu.Unlock()
	if locked {
		p.logSkip(diagnosis, SkipLocked)
		return Decision{SkipReason: SkipLocked, Mode: mode}
	}

	// Gate 5: type-level cooldown.
	cooldownKey := canonicalCooldownKey(action)
	p.mu.Lock()
	last, seen := p.lastApplied[cooldownKey]
	p.mu.Unlock()
	if seen && metrics.Tick < last+thresholds.CooldownTicks {
		p.logSkip(diagnosis, SkipCooldown)
		return Decision{SkipReason: SkipCooldown, Mode: mode}
	}

	// Gate 6: complexity budget.
	if p.ActivePlanCount() >= thresholds.ComplexityBudgetMax {
		p.logSkip(diagnosis, SkipBudget)
		return Decision{SkipReason: SkipBudget, Mode: mode}
	}

	currentValue := p.currentValue(resolvedKey)
	targetValue := computeTargetValue(currentValue, action, thresholds)
	targetValue = p.clampToConstraint(resolvedKey, targetValue)

	forwardTicks := p.cfg.ForwardTicks
	simResult := p.simulator.Simulate(ctx, simulator.Request{
		Action:     *action,
		Baseline:   metrics,
		Thresholds: thresholds,
		StartTick:  metrics.Tick,
		ForwardTicks: forwardTicks,
		Iterations: thresholds.SimulationMinIterations,
	})

	// Gate 7: simulation acceptance.
	if !(simResult.NetImprovement && simResult.NoNewProblems && simResult.OvershootRisk <= 0.5) {
		p.logSkip(diagnosis, SkipSimulationRejected)
		return Decision{SkipReason: SkipSimulationRejected, Mode: mode}
	}

	estimatedLag := diagnosis.Violation.EstimatedLag
	plan := &types.ActionPlan{
		ID:                uuid.New().String(),
		Diagnosis:         diagnosis,
		Parameter:         resolvedKey,
		Scope:             action.Scope,
		CurrentValue:      currentValue,
		TargetValue:       targetValue,
		MaxChangePercent:  thresholds.MaxAdjustmentPercent,
		CooldownTicks:     thresholds.CooldownTicks,
		RollbackCondition: rollbackCondition(diagnosis, metrics.Tick, estimatedLag, thresholds),
		SimulationResult:  &simResult,
		EstimatedLag:      estimatedLag,
	}

	// Gate 2: mode. Advisor-mode plans are fully built (so they're useful to
	// inspect) but never marked applied nor counted against the budget.
	if mode == types.ModeAdvisor {
		return Decision{Plan: plan, SkipReason: "", Mode: mode}
	}

	p.mu.Lock()
	p.lastApplied[cooldownKey] = metrics.Tick
	p.activePlanCount++
	p.mu.Unlock()

	return Decision{Plan: plan, Mode: mode}
}

// logSkip records, at debug level, why a diagnosis did not produce an
// applied plan. The authoritative record is the DecisionLog entry the
// engine writes from the returned SkipReason; this is only for local
// tracing.
func (p *Planner) logSkip(diagnosis types.Diagnosis, reason SkipReason) {
	p.logger.Debug("plan skipped",
		zap.String("principleId", diagnosis.PrincipleID),
		zap.String("reason", string(reason)),
	)
}

func (p *Planner) resolveParameter(action *types.SuggestedAction) (string, bool) {
	if p.registry == nil {
		return action.ParameterType, true
	}
	if p.registry.Len() == 0 {
		return action.ParameterType, true
	}
	param, ok := p.registry.Resolve(action.ParameterType, action.Scope)
	if !ok {
		return "", false
	}
	action.ResolvedParameter = param.Key
	return param.Key, true
}

// currentValue resolves the baseline a target is computed from: the
// registry's last-known value for key, falling back to 1 when the registry
// has never recorded one (per spec §4.4: baseline = registry.currentValue
// ?? currentParams[key] ?? 1 — this engine has no separate currentParams
// side-channel, so the fallback collapses straight to 1).
func (p *Planner) currentValue(key string) float64 {
	if p.registry == nil {
		return 1
	}
	v, ok := p.registry.CurrentValue(key)
	if !ok {
		return 1
	}
	return v
}

// computeTargetValue applies the suggested direction/magnitude to the
// current value, constrained to thresholds.maxAdjustmentPercent — the
// magnitude is capped, never enlarged.
func computeTargetValue(current float64, action *types.SuggestedAction, t types.Thresholds) float64 {
	magnitude := action.Magnitude
	if magnitude > t.MaxAdjustmentPercent {
		magnitude = t.MaxAdjustmentPercent
	}
	if action.Direction == types.DirectionDecrease {
		magnitude = -magnitude
	}
	return current * (1 + magnitude)
}

// clampToConstraint applies a host-configured [min, max] bound, if any is
// registered for this parameter, after the suggested-magnitude computation.
func (p *Planner) clampToConstraint(key string, target float64) float64 {
	p.mu.Lock()
	bounds, ok := p.constraints[key]
	p.mu.Unlock()
	if !ok {
		return target
	}
	min, max := bounds[0], bounds[1]
	if target < min {
		return min
	}
	if target > max {
		return max
	}
	return target
}

// canonicalCooldownKey joins the parameterType with a canonicalized scope
// (system/currency, tags sorted and joined) so cooldowns are keyed
// consistently regardless of tag ordering.
func canonicalCooldownKey(action *types.SuggestedAction) string {
	if action.Scope == nil {
		return action.ParameterType
	}
	tags := append([]string(nil), action.Scope.Tags...)
	sort.Strings(tags)
	return fmt.Sprintf("%s|%s|%s|%s", action.ParameterType, action.Scope.System, action.Scope.Currency, strings.Join(tags, ","))
}

// rollbackCondition derives a watch condition from the diagnosis's
// principle category, per the engine's conservative category-to-metric
// mapping (see the project's open-question decision): supply_chain and
// resource watch supplyByResource for the action's scope currency,
// operations and measurement watch eventCompletionRate, and every other
// category watches avgSatisfaction.
func rollbackCondition(diagnosis types.Diagnosis, tick, estimatedLag int, t types.Thresholds) types.RollbackCondition {
	checkAfter := tick + estimatedLag

	var metric string
	var direction types.RollbackDirection
	var threshold float64

	switch diagnosis.Category {
	case "currency", "statistical", "participant_experience", "open_economy":
		metric = "avgSatisfaction"
		direction = types.RollbackBelow
		threshold = t.SatisfactionFloor
	case "supply_chain", "resource":
		resource := ""
		if diagnosis.Violation.SuggestedAction != nil && diagnosis.Violation.SuggestedAction.Scope != nil {
			resource = diagnosis.Violation.SuggestedAction.Scope.Currency
		}
		metric = "supplyByResource." + resource
		direction = types.RollbackBelow
		threshold = 0
	case "operations", "measurement":
		metric = "eventCompletionRate"
		direction = types.RollbackBelow
		threshold = t.EventCompletionFloor
	default:
		metric = "avgSatisfaction"
		direction = types.RollbackBelow
		threshold = t.SatisfactionFloor
	}

	return types.RollbackCondition{
		Metric:         metric,
		Direction:      direction,
		Threshold:      threshold,
		CheckAfterTick: checkAfter,
	}
}
