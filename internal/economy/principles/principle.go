// Package principles holds the registry of built-in economic principles:
// pure predicates over (metrics, thresholds) that flag violations. The
// append-only registration pattern mirrors the reference service's strategy
// registry (internal/strategy/strategy.go), which holds named, constructed-
// once strategies in a flat slice rather than a dynamic plugin mechanism.
package principles

import (
	"github.com/atlas-desktop/agente/internal/economy/types"
)

// CheckFunc is the pure predicate every principle implements. It must be
// deterministic and side-effect free.
type CheckFunc func(metrics types.EconomyMetrics, thresholds types.Thresholds) types.PrincipleResult

// Principle is a value-type record holding identity plus a function
// pointer, per the design note's "represent as a value-type record with a
// function pointer" guidance (rather than an interface hierarchy).
type Principle struct {
	ID          string
	Name        string
	Category    string
	Description string
	Check       CheckFunc
}

// Registry is the append-only, construction-time list of all registered
// principles.
type Registry struct {
	principles []Principle
}

// NewRegistry builds a registry with the full built-in principle set
// already registered.
func NewRegistry() *Registry {
	r := &Registry{}
	registerSupplyChain(r)
	registerIncentive(r)
	registerPopulation(r)
	registerCurrency(r)
	registerBootstrap(r)
	registerFeedback(r)
	registerRegulator(r)
	registerMarketDynamics(r)
	registerMeasurement(r)
	registerStatistical(r)
	registerSystemDynamics(r)
	registerResource(r)
	registerParticipantExperience(r)
	registerOpenEconomy(r)
	registerOperations(r)
	return r
}

// Register appends one principle. Intended for use only during
// construction (NewRegistry and tests); the list is append-only afterward.
func (r *Registry) Register(p Principle) {
	r.principles = append(r.principles, p)
}

// All returns the full, ordered principle list.
func (r *Registry) All() []Principle {
	return r.principles
}

// noViolation is the canonical "nothing to report" result.
func noViolation() types.PrincipleResult {
	return types.PrincipleResult{Violated: false}
}

// violation builds a populated PrincipleResult and clamps it, so every
// principle body can return a result that's already spec-conformant without
// repeating the clamp call.
func violation(severity, confidence float64, lag int, evidence map[string]any, action types.SuggestedAction) types.PrincipleResult {
	r := types.PrincipleResult{
		Violated:        true,
		Severity:        severity,
		Confidence:      confidence,
		EstimatedLag:    lag,
		Evidence:        evidence,
		SuggestedAction: &action,
	}
	r.Clamp()
	return r
}
