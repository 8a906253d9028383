// Package diagnoser runs the registered principle set against a metrics
// snapshot and produces the tick's ordered diagnosis list. It mirrors the
// reference orchestrator's pattern of driving a flat, pre-registered
// collection of independent checks (internal/strategy/strategy.go) rather
// than a dynamic plugin system, and isolates each principle's panic the way
// the reference worker pool isolates a task's panic from the rest of the
// pool (internal/workers/pool.go).
package diagnoser

import (
	"fmt"
	"sort"

	"github.com/atlas-desktop/agente/internal/economy/principles"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

// Diagnoser evaluates every registered principle against a metrics snapshot.
type Diagnoser struct {
	logger     *zap.Logger
	principles *principles.Registry
}

// New builds a Diagnoser over the given principle registry.
func New(logger *zap.Logger, reg *principles.Registry) *Diagnoser {
	return &Diagnoser{logger: logger.Named("diagnoser"), principles: reg}
}

// Diagnose runs every registered principle against metrics/thresholds, in
// registration order, and returns the violations sorted by severity
// descending, then confidence descending. A principle whose Check panics is
// isolated: its panic is logged and it contributes no diagnosis, leaving
// every other principle's result intact.
func (d *Diagnoser) Diagnose(tick int, metrics types.EconomyMetrics, thresholds types.Thresholds) []types.Diagnosis {
	all := d.principles.All()
	diagnoses := make([]types.Diagnosis, 0, len(all))

	for _, p := range all {
		result, ok := d.runSafely(p, metrics, thresholds)
		if !ok || !result.Violated {
			continue
		}
		result.Clamp()
		diagnoses = append(diagnoses, types.Diagnosis{
			PrincipleID:   p.ID,
			PrincipleName: p.Name,
			Category:      p.Category,
			Violation:     result,
			Tick:          tick,
		})
	}

	sort.SliceStable(diagnoses, func(i, j int) bool {
		if diagnoses[i].Violation.Severity != diagnoses[j].Violation.Severity {
			return diagnoses[i].Violation.Severity > diagnoses[j].Violation.Severity
		}
		return diagnoses[i].Violation.Confidence > diagnoses[j].Violation.Confidence
	})

	return diagnoses
}

// runSafely invokes a single principle's Check, recovering from a panic so
// one broken principle can't take the whole tick's diagnosis down.
func (d *Diagnoser) runSafely(p principles.Principle, metrics types.EconomyMetrics, thresholds types.Thresholds) (result types.PrincipleResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("principle check panicked, skipping",
				zap.String("principleId", p.ID),
				zap.Any("recovered", r),
			)
			ok = false
		}
	}()
	return p.Check(metrics, thresholds), true
}

// Top returns the single highest-priority diagnosis, or false if none
// violated. Ties are already broken by Diagnose's sort.
func Top(diagnoses []types.Diagnosis) (types.Diagnosis, bool) {
	if len(diagnoses) == 0 {
		return types.Diagnosis{}, false
	}
	return diagnoses[0], true
}

// ByID looks up a specific principle ID's result, for callers (tests,
// transport's /diagnose endpoint) that want one check in isolation rather
// than the full ranked list.
func ByID(diagnoses []types.Diagnosis, id string) (types.Diagnosis, error) {
	for _, diag := range diagnoses {
		if diag.PrincipleID == id {
			return diag, nil
		}
	}
	return types.Diagnosis{}, fmt.Errorf("no diagnosis found for principle %q", id)
}
