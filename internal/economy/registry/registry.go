// Package registry maps a principle's abstract parameterType+scope onto a
// concrete parameter key the host adapter understands, and exposes that
// key's flow impact to the Simulator. The scoring algorithm and tie-break
// order are modeled on the specificity-scoring gates the reference
// trading-backend applies in its position sizer and risk manager before
// picking a concrete limit for a scoped instrument.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

// Registry owns the set of RegisteredParameters for one engine run.
type Registry struct {
	logger *zap.Logger

	mu      sync.RWMutex
	entries []*types.RegisteredParameter
	byKey   map[string]*types.RegisteredParameter
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
		byKey:  make(map[string]*types.RegisteredParameter),
	}
}

// Register adds a parameter. Registration order matters for tie-breaking in
// resolve, so Register must be called in a stable, deterministic order at
// construction time.
func (r *Registry) Register(p types.RegisteredParameter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := p
	r.entries = append(r.entries, &cp)
	r.byKey[p.Key] = &cp
}

// candidate pairs a registered parameter with its specificity score for one
// resolve() call.
type candidate struct {
	param *types.RegisteredParameter
	score int
	order int
}

// Resolve implements the specificity-scoring algorithm: system match is
// worth 10, currency match 5, each shared tag 3; a mismatch on system or
// currency, or an empty tag intersection when both sides declare tags,
// disqualifies the candidate outright. Ties break by priority (default 0,
// higher wins), then by registration order (earlier wins).
func (r *Registry) Resolve(parameterType string, scope *types.ActionScope) (*types.RegisteredParameter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []candidate
	for i, p := range r.entries {
		if p.Type != parameterType {
			continue
		}
		score, ok := specificity(p.Scope, scope)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{param: p, score: score, order: i})
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].param.Priority != candidates[j].param.Priority {
			return candidates[i].param.Priority > candidates[j].param.Priority
		}
		return candidates[i].order < candidates[j].order
	})

	return candidates[0].param, true
}

// specificity scores how well a candidate's declared scope matches the
// query scope. The second return value is false when the candidate is
// disqualified.
func specificity(candidateScope, querySCope *types.ActionScope) (int, bool) {
	score := 0

	cSystem, qSystem := "", ""
	cCurrency, qCurrency := "", ""
	var cTags, qTags []string
	if candidateScope != nil {
		cSystem, cCurrency, cTags = candidateScope.System, candidateScope.Currency, candidateScope.Tags
	}
	if querySCope != nil {
		qSystem, qCurrency, qTags = querySCope.System, querySCope.Currency, querySCope.Tags
	}

	if cSystem != "" && qSystem != "" {
		if cSystem != qSystem {
			return 0, false
		}
		score += 10
	}
	if cCurrency != "" && qCurrency != "" {
		if cCurrency != qCurrency {
			return 0, false
		}
		score += 5
	}
	if len(cTags) > 0 && len(qTags) > 0 {
		n := tagIntersection(cTags, qTags)
		if n == 0 {
			return 0, false
		}
		score += 3 * n
	}

	return score, true
}

func tagIntersection(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	count := 0
	for _, t := range b {
		if set[t] {
			count++
		}
	}
	return count
}

// GetFlowImpact returns the flow impact declared for a concrete key, used
// by the Simulator when an action already carries a ResolvedParameter.
func (r *Registry) GetFlowImpact(key string) (types.FlowImpact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byKey[key]
	if !ok {
		return "", false
	}
	return p.FlowImpact, true
}

// CurrentValue returns the last-known value of a registered parameter, if
// any has been recorded.
func (r *Registry) CurrentValue(key string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byKey[key]
	if !ok || p.CurrentValue == nil {
		return 0, false
	}
	return *p.CurrentValue, true
}

// SetCurrentValue records the value a successful apply just set, per
// invariant I4.
func (r *Registry) SetCurrentValue(key string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byKey[key]; ok {
		p.CurrentValue = &value
	}
}

// Len reports how many parameters are registered, primarily so callers can
// tell an empty registry (fallback mode) from a configured one.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ValidationIssue is one finding from Validate.
type ValidationIssue struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate reports ambiguous registrations (multiple unscoped parameters
// sharing a type) as errors, and parameters missing a declared flow impact
// as warnings.
func (r *Registry) Validate() []ValidationIssue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var issues []ValidationIssue
	unscopedByType := make(map[string]int)
	for _, p := range r.entries {
		if p.Scope == nil || (p.Scope.System == "" && p.Scope.Currency == "" && len(p.Scope.Tags) == 0) {
			unscopedByType[p.Type]++
		}
		if p.FlowImpact == "" {
			issues = append(issues, ValidationIssue{
				Level:   "warning",
				Message: fmt.Sprintf("parameter %q has no declared flowImpact", p.Key),
			})
		}
	}
	for t, n := range unscopedByType {
		if n > 1 {
			issues = append(issues, ValidationIssue{
				Level:   "error",
				Message: fmt.Sprintf("%d unscoped parameters share type %q (ambiguous)", n, t),
			})
		}
	}
	return issues
}

// All returns a snapshot copy of all registered parameters, for the
// /principles-adjacent introspection surface and tests.
func (r *Registry) All() []types.RegisteredParameter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.RegisteredParameter, len(r.entries))
	for i, p := range r.entries {
		out[i] = *p
	}
	return out
}
