package decisionlog_test

import (
	"encoding/json"
	"testing"

	"github.com/atlas-desktop/agente/internal/economy/decisionlog"
	"github.com/atlas-desktop/agente/internal/economy/types"
)

func TestRecordAndLatest(t *testing.T) {
	log := decisionlog.New()
	log.Record(1, nil, nil, types.ResultSkippedGracePeriod, "within grace period", types.EconomyMetrics{Tick: 1})
	log.Record(2, nil, nil, types.ResultApplied, "applied P12", types.EconomyMetrics{Tick: 2})

	latest := log.Latest(1)
	if len(latest) != 1 || latest[0].Tick != 2 {
		t.Fatalf("expected the most recent entry (tick 2) first, got %+v", latest)
	}

	all := log.Latest(0)
	if len(all) != 2 {
		t.Fatalf("expected Latest(0) to return all entries, got %d", len(all))
	}
}

func TestTrimAt1500KeepsNewest1000(t *testing.T) {
	log := decisionlog.New()
	for i := 0; i < 1500; i++ {
		log.Record(i, nil, nil, types.ResultSkippedGracePeriod, "filler", types.EconomyMetrics{Tick: i})
	}
	if log.Len() != 1000 {
		t.Fatalf("expected trim to 1000 entries at the 1500 trigger, got %d", log.Len())
	}
	newest := log.Latest(1)
	if len(newest) != 1 || newest[0].Tick != 1499 {
		t.Fatalf("expected the trim to keep the newest entries, got %+v", newest)
	}
}

func TestQueryFiltersByPrincipleAndResult(t *testing.T) {
	log := decisionlog.New()
	log.Record(1, &types.Diagnosis{PrincipleID: "P12"}, nil, types.ResultApplied, "applied", types.EconomyMetrics{})
	log.Record(2, &types.Diagnosis{PrincipleID: "P33"}, nil, types.ResultSkippedCooldown, "cooldown", types.EconomyMetrics{})

	byPrinciple := log.Query(decisionlog.Filter{IssuePrincipleID: "P12"})
	if len(byPrinciple) != 1 || byPrinciple[0].Diagnosis.PrincipleID != "P12" {
		t.Fatalf("expected exactly the P12 entry, got %+v", byPrinciple)
	}

	byResult := log.Query(decisionlog.Filter{Result: types.ResultSkippedCooldown})
	if len(byResult) != 1 || byResult[0].Result != types.ResultSkippedCooldown {
		t.Fatalf("expected exactly the skipped_cooldown entry, got %+v", byResult)
	}
}

func TestExportJSONRoundTrips(t *testing.T) {
	log := decisionlog.New()
	log.Record(1, &types.Diagnosis{PrincipleID: "P12"}, nil, types.ResultApplied, "applied", types.EconomyMetrics{Tick: 1})

	out, err := log.Export("json")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var decoded []types.DecisionEntry
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("exported JSON did not round-trip: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Result != types.ResultApplied {
		t.Fatalf("expected one applied entry after round-trip, got %+v", decoded)
	}
}

func TestExportTextIncludesPrincipleAndParameter(t *testing.T) {
	log := decisionlog.New()
	log.Record(1, &types.Diagnosis{PrincipleID: "P12"}, &types.ActionPlan{Parameter: "craftingCost"}, types.ResultApplied, "applied", types.EconomyMetrics{})

	out, err := log.Export("text")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty text export")
	}
}

func TestExportUnknownFormatErrors(t *testing.T) {
	log := decisionlog.New()
	if _, err := log.Export("xml"); err == nil {
		t.Fatal("expected an error for an unsupported export format")
	}
}
