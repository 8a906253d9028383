package registry_test

import (
	"testing"

	"github.com/atlas-desktop/agente/internal/economy/registry"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

// TestResolveSpecificityScoring is scenario 6 from the end-to-end scenario
// list: two cost entries, one more specific than the other, and a query
// that should prefer the more specific match only when its extra
// specificity (tags) is actually requested.
func TestResolveSpecificityScoring(t *testing.T) {
	r := registry.New(zap.NewNop())
	r.Register(types.RegisteredParameter{
		Key: "A", Type: "cost",
		Scope: &types.ActionScope{System: "crafting", Currency: "gold"},
	})
	r.Register(types.RegisteredParameter{
		Key: "B", Type: "cost",
		Scope: &types.ActionScope{System: "crafting", Currency: "gold", Tags: []string{"entry"}},
	})

	withTags, ok := r.Resolve("cost", &types.ActionScope{System: "crafting", Currency: "gold", Tags: []string{"entry"}})
	if !ok || withTags.Key != "B" {
		t.Fatalf("expected B to win with matching tags, got %+v", withTags)
	}

	withoutTags, ok := r.Resolve("cost", &types.ActionScope{System: "crafting", Currency: "gold"})
	if !ok || withoutTags.Key != "A" {
		t.Fatalf("expected A to win when query carries no tags (registration order tiebreak), got %+v", withoutTags)
	}
}

func TestResolveDisqualifiesMismatchedScope(t *testing.T) {
	r := registry.New(zap.NewNop())
	r.Register(types.RegisteredParameter{Key: "gold-cost", Type: "cost", Scope: &types.ActionScope{Currency: "gold"}})

	_, ok := r.Resolve("cost", &types.ActionScope{Currency: "gems"})
	if ok {
		t.Fatal("expected no match for a disqualifying currency mismatch")
	}
}

func TestCurrentValueRoundTrip(t *testing.T) {
	r := registry.New(zap.NewNop())
	r.Register(types.RegisteredParameter{Key: "craftingCost", Type: "cost"})

	if _, ok := r.CurrentValue("craftingCost"); ok {
		t.Fatal("expected no current value before SetCurrentValue")
	}
	r.SetCurrentValue("craftingCost", 100)
	v, ok := r.CurrentValue("craftingCost")
	if !ok || v != 100 {
		t.Fatalf("expected 100, got %v (ok=%v)", v, ok)
	}
}

func TestValidateFlagsAmbiguousUnscopedRegistrations(t *testing.T) {
	r := registry.New(zap.NewNop())
	r.Register(types.RegisteredParameter{Key: "a", Type: "cost"})
	r.Register(types.RegisteredParameter{Key: "b", Type: "cost"})

	issues := r.Validate()
	foundAmbiguity := false
	for _, i := range issues {
		if i.Level == "error" {
			foundAmbiguity = true
		}
	}
	if !foundAmbiguity {
		t.Fatal("expected an error-level ambiguity for two unscoped same-type parameters")
	}
}
