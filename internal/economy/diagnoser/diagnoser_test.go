package diagnoser_test

import (
	"testing"

	"github.com/atlas-desktop/agente/internal/economy/diagnoser"
	"github.com/atlas-desktop/agente/internal/economy/principles"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

func registryWith(ps ...principles.Principle) *principles.Registry {
	r := &principles.Registry{}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

func violatingCheck(severity, confidence float64) principles.CheckFunc {
	return func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
		return types.PrincipleResult{Violated: true, Severity: severity, Confidence: confidence}
	}
}

func TestDiagnoseSortsBySeverityThenConfidence(t *testing.T) {
	reg := registryWith(
		principles.Principle{ID: "low", Name: "low", Category: "test", Check: violatingCheck(2, 0.9)},
		principles.Principle{ID: "high", Name: "high", Category: "test", Check: violatingCheck(8, 0.5)},
		principles.Principle{ID: "mid-a", Name: "mid-a", Category: "test", Check: violatingCheck(5, 0.3)},
		principles.Principle{ID: "mid-b", Name: "mid-b", Category: "test", Check: violatingCheck(5, 0.9)},
	)
	d := diagnoser.New(zap.NewNop(), reg)
	diagnoses := d.Diagnose(1, types.EconomyMetrics{}, types.DefaultThresholds())

	if len(diagnoses) != 4 {
		t.Fatalf("expected 4 diagnoses, got %d", len(diagnoses))
	}
	order := make([]string, len(diagnoses))
	for i, d := range diagnoses {
		order[i] = d.PrincipleID
	}
	want := []string{"high", "mid-b", "mid-a", "low"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestDiagnosePanicIsolatesOnePrincipleFromTheRest(t *testing.T) {
	reg := registryWith(
		principles.Principle{ID: "good", Name: "good", Category: "test", Check: violatingCheck(9, 0.9)},
		principles.Principle{ID: "bad", Name: "bad", Category: "test", Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
			panic("boom")
		}},
	)
	d := diagnoser.New(zap.NewNop(), reg)

	var diagnoses []types.Diagnosis
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Diagnose must not let a principle's panic propagate, recovered: %v", r)
			}
		}()
		diagnoses = d.Diagnose(1, types.EconomyMetrics{}, types.DefaultThresholds())
	}()

	if len(diagnoses) != 1 || diagnoses[0].PrincipleID != "good" {
		t.Fatalf("expected exactly the surviving principle's diagnosis, got %+v", diagnoses)
	}
}

func TestDiagnoseNoViolationsYieldsEmptySlice(t *testing.T) {
	reg := registryWith(principles.Principle{ID: "quiet", Name: "quiet", Category: "test", Check: func(m types.EconomyMetrics, t types.Thresholds) types.PrincipleResult {
		return types.PrincipleResult{Violated: false}
	}})
	d := diagnoser.New(zap.NewNop(), reg)
	diagnoses := d.Diagnose(1, types.EconomyMetrics{}, types.DefaultThresholds())
	if len(diagnoses) != 0 {
		t.Fatalf("expected no diagnoses, got %+v", diagnoses)
	}
}

func TestTopAndByID(t *testing.T) {
	reg := registryWith(
		principles.Principle{ID: "a", Name: "a", Category: "test", Check: violatingCheck(3, 0.5)},
		principles.Principle{ID: "b", Name: "b", Category: "test", Check: violatingCheck(9, 0.5)},
	)
	d := diagnoser.New(zap.NewNop(), reg)
	diagnoses := d.Diagnose(1, types.EconomyMetrics{}, types.DefaultThresholds())

	top, ok := diagnoser.Top(diagnoses)
	if !ok || top.PrincipleID != "b" {
		t.Fatalf("expected b as top diagnosis, got %+v (ok=%v)", top, ok)
	}

	if _, err := diagnoser.ByID(diagnoses, "missing"); err == nil {
		t.Fatal("expected an error for an unknown principle ID")
	}
	found, err := diagnoser.ByID(diagnoses, "a")
	if err != nil || found.PrincipleID != "a" {
		t.Fatalf("expected to find principle a, got %+v (err=%v)", found, err)
	}
}
