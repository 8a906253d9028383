package observer_test

import (
	"testing"

	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/observer"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

func sampleState(tick int) types.EconomyState {
	return types.EconomyState{
		Tick:       tick,
		Currencies: []string{"gold"},
		AgentBalances: map[string]map[string]float64{
			"a1": {"gold": 100},
			"a2": {"gold": 50},
			"a3": {"gold": 10},
		},
		AgentSatisfaction: map[string]float64{"a1": 80, "a2": 70, "a3": 60},
		MarketPrices:      map[string]map[string]float64{"gold": {"market1": 1.0, "market2": 1.2}},
		PoolSizes:         map[string]map[string]float64{"gold": {"reserve": 1000}},
	}
}

func TestFaucetSinkNetFlowInvariant(t *testing.T) {
	o := observer.New(zap.NewNop(), metricstore.New(metricstore.DefaultConfig()))
	state := sampleState(1)
	events := []types.EconomicEvent{
		{Type: types.EventMint, Currency: "gold", Amount: 20},
		{Type: types.EventBurn, Currency: "gold", Amount: 5},
	}
	m := o.Observe(state, events, nil)

	if m.FaucetVolume != 20 {
		t.Fatalf("expected faucetVolume 20, got %v", m.FaucetVolume)
	}
	if m.SinkVolume != 5 {
		t.Fatalf("expected sinkVolume 5, got %v", m.SinkVolume)
	}
	if m.NetFlow != m.FaucetVolume-m.SinkVolume {
		t.Fatalf("netFlow must equal faucetVolume - sinkVolume, got %v vs %v", m.NetFlow, m.FaucetVolume-m.SinkVolume)
	}
}

func TestEnterEventNeverAccumulatesIntoFlowBySystemOrSource(t *testing.T) {
	o := observer.New(zap.NewNop(), metricstore.New(metricstore.DefaultConfig()))
	state := sampleState(1)
	events := []types.EconomicEvent{
		{Type: types.EventEnter, Currency: "gold", Amount: 500, System: "onboarding", SourceOrSink: "welcome_bonus"},
	}
	m := o.Observe(state, events, nil)

	if v, ok := m.FlowBySystem["onboarding"]; ok && v != 0 {
		t.Fatalf("enter events must not attribute to flowBySystem, got %v", v)
	}
	if v, ok := m.FlowBySource["welcome_bonus"]; ok && v != 0 {
		t.Fatalf("enter events must not attribute to flowBySource, got %v", v)
	}
	if m.FaucetVolume != 500 {
		t.Fatalf("enter should still count toward faucetVolume, got %v", m.FaucetVolume)
	}
}

func TestArbitrageIndexZeroWithFewerThanTwoPositivePrices(t *testing.T) {
	o := observer.New(zap.NewNop(), metricstore.New(metricstore.DefaultConfig()))
	state := sampleState(1)
	state.MarketPrices = map[string]map[string]float64{"gold": {"market1": 1.0}}
	m := o.Observe(state, nil, nil)

	if m.ArbitrageIndex != 0 {
		t.Fatalf("expected arbitrageIndex 0 with a single price, got %v", m.ArbitrageIndex)
	}
}

func TestArbitrageIndexZeroWhenAllPricesEqual(t *testing.T) {
	o := observer.New(zap.NewNop(), metricstore.New(metricstore.DefaultConfig()))
	state := sampleState(1)
	state.MarketPrices = map[string]map[string]float64{"gold": {"market1": 2.0, "market2": 2.0, "market3": 2.0}}
	m := o.Observe(state, nil, nil)

	if m.ArbitrageIndex != 0 {
		t.Fatalf("expected arbitrageIndex 0 when all prices agree, got %v", m.ArbitrageIndex)
	}
}

func TestArbitrageIndexPositiveWhenPricesDiverge(t *testing.T) {
	o := observer.New(zap.NewNop(), metricstore.New(metricstore.DefaultConfig()))
	state := sampleState(1)
	state.MarketPrices = map[string]map[string]float64{"gold": {"market1": 1.0, "market2": 5.0}}
	m := o.Observe(state, nil, nil)

	if m.ArbitrageIndex <= 0 {
		t.Fatalf("expected a positive arbitrageIndex when prices diverge, got %v", m.ArbitrageIndex)
	}
}

func TestPeekDoesNotMutateObserverState(t *testing.T) {
	store := metricstore.New(metricstore.DefaultConfig())
	o := observer.New(zap.NewNop(), store)

	state1 := sampleState(1)
	o.Observe(state1, nil, nil)
	windowAfterObserve := store.EngagementWindow()

	state2 := sampleState(2)
	state2.AgentBalances["a1"]["gold"] = 9999 // would change inflationRateByCurrency's baseline if committed

	peeked := o.Peek(state2, nil, nil)
	windowAfterPeek := store.EngagementWindow()

	if len(windowAfterPeek) != len(windowAfterObserve) {
		t.Fatalf("Peek must not push an engagement sample: before=%d after=%d", len(windowAfterObserve), len(windowAfterPeek))
	}

	// A subsequent real Observe at tick 3 must compute its inflation delta
	// against tick 1's committed supply, not tick 2's peeked supply.
	state3 := sampleState(3)
	committed := o.Observe(state3, nil, nil)
	if peeked.Tick == committed.Tick {
		t.Fatalf("peeked and committed snapshots unexpectedly share a tick")
	}
	expectedPrevSupply := state1.AgentBalances["a1"]["gold"] + state1.AgentBalances["a2"]["gold"] + state1.AgentBalances["a3"]["gold"]
	supplyAtTick3 := state3.AgentBalances["a1"]["gold"] + state3.AgentBalances["a2"]["gold"] + state3.AgentBalances["a3"]["gold"]
	expectedInflation := (supplyAtTick3 - expectedPrevSupply) / expectedPrevSupply
	if committed.InflationRateByCurrency["gold"] != expectedInflation {
		t.Fatalf("Peek leaked into the committed inflation baseline: got %v want %v", committed.InflationRateByCurrency["gold"], expectedInflation)
	}
}

func TestAvgSatisfactionZeroWhenNoneReported(t *testing.T) {
	o := observer.New(zap.NewNop(), metricstore.New(metricstore.DefaultConfig()))
	state := sampleState(1)
	state.AgentSatisfaction = nil
	m := o.Observe(state, nil, nil)

	if m.AvgSatisfaction != 0 {
		t.Fatalf("expected avgSatisfaction 0 with no reports, got %v", m.AvgSatisfaction)
	}
}
