package metricstore_test

import (
	"math"
	"testing"

	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/types"
)

func TestLatestAfterSingleRecordEqualsRecordedSnapshot(t *testing.T) {
	s := metricstore.New(metricstore.DefaultConfig())
	m := types.EconomyMetrics{Tick: 7, AvgSatisfaction: 80, GiniCoefficient: 0.3, NetFlow: 2}
	s.Record(m)

	got, ok := s.Latest(metricstore.Fine)
	if !ok {
		t.Fatal("expected a fine entry after Record")
	}
	if got.Tick != 7 || got.AvgSatisfaction != 80 || got.GiniCoefficient != 0.3 || got.NetFlow != 2 {
		t.Fatalf("latest(fine) diverged from the recorded snapshot: %+v", got)
	}
}

func TestAggregationOfIdenticalSnapshotsPreservesScalars(t *testing.T) {
	cfg := metricstore.Config{Capacity: 200, MediumWindow: 5, CoarseWindow: 50}
	s := metricstore.New(cfg)

	snap := types.EconomyMetrics{AvgSatisfaction: 72.5, GiniCoefficient: 0.4, NetFlow: -3, ChurnRate: 0.02}
	for i := 0; i < 5; i++ {
		m := snap
		m.Tick = i
		s.Record(m)
	}

	medium, ok := s.Latest(metricstore.Medium)
	if !ok {
		t.Fatal("expected a medium entry after 5 records with MediumWindow=5")
	}
	if medium.AvgSatisfaction != 72.5 || medium.GiniCoefficient != 0.4 || medium.NetFlow != -3 || medium.ChurnRate != 0.02 {
		t.Fatalf("medium aggregate of identical snapshots should equal the snapshot, got %+v", medium)
	}
	if medium.Tick != 4 {
		t.Fatalf("expected aggregate tick to be the last window member's tick (4), got %d", medium.Tick)
	}
}

func TestHealthScorePenalizesEachDimension(t *testing.T) {
	perfect := types.EconomyMetrics{AvgSatisfaction: 90, GiniCoefficient: 0.2, NetFlow: 0, ChurnRate: 0}
	if got := metricstore.HealthScore(perfect); got != 100 {
		t.Fatalf("expected a perfect snapshot to score 100, got %v", got)
	}

	bad := types.EconomyMetrics{AvgSatisfaction: 40, GiniCoefficient: 0.7, NetFlow: 25, ChurnRate: 0.1}
	got := metricstore.HealthScore(bad)
	if got >= 50 {
		t.Fatalf("expected a badly unhealthy snapshot to score low, got %v", got)
	}
	if got < 0 {
		t.Fatalf("health score must clamp at 0, got %v", got)
	}
}

func TestQueryFiltersByTickRange(t *testing.T) {
	s := metricstore.New(metricstore.DefaultConfig())
	for i := 0; i < 5; i++ {
		s.Record(types.EconomyMetrics{Tick: i, NetFlow: float64(i)})
	}

	from, to := 1, 3
	points := s.Query(metricstore.QueryFilter{Metric: "netFlow", Resolution: metricstore.Fine, From: &from, To: &to})
	if len(points) != 3 {
		t.Fatalf("expected 3 points in [1,3], got %d", len(points))
	}
	for _, p := range points {
		if p.Tick < from || p.Tick > to {
			t.Fatalf("point outside requested range: %+v", p)
		}
		if p.Value != float64(p.Tick) {
			t.Fatalf("expected netFlow == tick, got %+v", p)
		}
	}
}

func TestResolvePathUnknownFieldYieldsNaN(t *testing.T) {
	m := types.EconomyMetrics{Tick: 1, NetFlow: 5}
	if v := metricstore.ResolvePath(m, "doesNotExist"); !math.IsNaN(v) {
		t.Fatalf("expected NaN for an unresolvable path, got %v", v)
	}
	if v := metricstore.ResolvePath(m, "netFlow"); v != 5 {
		t.Fatalf("expected netFlow to resolve to 5, got %v", v)
	}
}

func TestResolvePathNestedMapKey(t *testing.T) {
	m := types.EconomyMetrics{
		GiniCoefficientByCurrency: map[string]float64{"gold": 0.38, "gems": 0.72},
	}
	if v := metricstore.ResolvePath(m, "giniCoefficientByCurrency.gems"); v != 0.72 {
		t.Fatalf("expected gems gini 0.72, got %v", v)
	}
	if v := metricstore.ResolvePath(m, "giniCoefficientByCurrency.platinum"); !math.IsNaN(v) {
		t.Fatalf("expected NaN for a missing map key, got %v", v)
	}
}

func TestDivergenceDetectedRequiresBothRings(t *testing.T) {
	s := metricstore.New(metricstore.DefaultConfig())
	if s.DivergenceDetected() {
		t.Fatal("expected no divergence reported before any entries exist")
	}
}
