// Package observer derives a fresh EconomyMetrics record from a host's raw
// EconomyState and the events that occurred during the tick, caching the
// previous tick's metrics to compute deltas. It is grounded on the
// reference service's data-quality defaulting (internal/data/quality.go,
// missing fields become zeros rather than errors) and its regime
// detector's rolling-window local-extrema scan (internal/regime/detector.go)
// for cyclical peak/valley detection.
package observer

import (
	"math"
	"sort"

	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Observer is a (mostly) pure function of (state, events, personas) plus the
// previous tick's metrics, which it caches across calls.
type Observer struct {
	logger *zap.Logger
	store  *metricstore.Store

	prev   *types.EconomyMetrics
	prevOK bool
}

// New creates an Observer backed by a MetricStore for its bounded
// engagement-window ring.
func New(logger *zap.Logger, store *metricstore.Store) *Observer {
	return &Observer{logger: logger, store: store}
}

// Observe computes EconomyMetrics for the given state and tick-local
// events, caching the result as "previous tick" for the next call and
// recording an engagement sample into the MetricStore's window.
func (o *Observer) Observe(state types.EconomyState, events []types.EconomicEvent, personaDistribution map[string]float64) types.EconomyMetrics {
	return o.compute(state, events, personaDistribution, true)
}

// Peek computes EconomyMetrics exactly as Observe does, but without
// mutating the cached previous-tick snapshot or the MetricStore's
// engagement window — used by the side-effect-free POST /diagnose path,
// which must not disturb the real pipeline's inflation-rate baseline.
func (o *Observer) Peek(state types.EconomyState, events []types.EconomicEvent, personaDistribution map[string]float64) types.EconomyMetrics {
	return o.compute(state, events, personaDistribution, false)
}

func (o *Observer) compute(state types.EconomyState, events []types.EconomicEvent, personaDistribution map[string]float64, commit bool) types.EconomyMetrics {
	m := types.EconomyMetrics{Tick: state.Tick}

	currencies := state.Currencies
	if len(currencies) == 0 {
		currencies = inferCurrencies(state)
	}

	m.TotalSupplyByCurrency = map[string]float64{}
	m.NetFlowByCurrency = map[string]float64{}
	m.VelocityByCurrency = map[string]float64{}
	m.InflationRateByCurrency = map[string]float64{}
	m.GiniCoefficientByCurrency = map[string]float64{}
	m.MeanBalanceByCurrency = map[string]float64{}
	m.MedianBalanceByCurrency = map[string]float64{}
	m.Top10PctShareByCurrency = map[string]float64{}
	m.MeanMedianDivergenceByCurrency = map[string]float64{}
	m.FaucetVolumeByCurrency = map[string]float64{}
	m.SinkVolumeByCurrency = map[string]float64{}
	m.ArbitrageIndexByCurrency = map[string]float64{}
	m.PricesByCurrency = map[string]map[string]float64{}
	m.PoolSizesByCurrency = map[string]map[string]float64{}
	m.FlowBySystem = map[string]float64{}
	m.FlowBySource = map[string]float64{}
	m.ActivityBySystem = map[string]float64{}
	m.ParticipantsBySystem = map[string]float64{}

	var totalSupplyAll, faucetAll, sinkAll float64

	for _, c := range currencies {
		balances := perCurrencyBalances(state, c)
		supply := sum(balances)
		m.TotalSupplyByCurrency[c] = supply
		totalSupplyAll += supply

		faucet, sink := flowVolumes(events, c)
		m.FaucetVolumeByCurrency[c] = faucet
		m.SinkVolumeByCurrency[c] = sink
		m.NetFlowByCurrency[c] = faucet - sink
		faucetAll += faucet
		sinkAll += sink

		m.VelocityByCurrency[c] = velocity(events, c, supply)

		prevSupply := 0.0
		if o.prevOK {
			prevSupply = o.prev.TotalSupplyByCurrency[c]
		}
		m.InflationRateByCurrency[c] = (supply - prevSupply) / math.Max(1, prevSupply)

		m.GiniCoefficientByCurrency[c] = giniCoefficient(balances)
		mean, median := meanMedian(balances)
		m.MeanBalanceByCurrency[c] = mean
		m.MedianBalanceByCurrency[c] = median
		m.MeanMedianDivergenceByCurrency[c] = math.Abs(mean-median) / math.Max(1, mean)
		m.Top10PctShareByCurrency[c] = top10PctShare(balances, supply)

		prices := state.MarketPrices[c]
		m.PricesByCurrency[c] = prices
		m.ArbitrageIndexByCurrency[c] = arbitrageIndex(prices)

		m.PoolSizesByCurrency[c] = state.PoolSizes[c]

		accumulateFlowBySystemSource(events, c, m.FlowBySystem, m.FlowBySource)
	}

	m.TotalSupply = totalSupplyAll
	m.FaucetVolume = faucetAll
	m.SinkVolume = sinkAll
	m.NetFlow = faucetAll - sinkAll
	if len(currencies) > 0 {
		m.GiniCoefficient = m.GiniCoefficientByCurrency[currencies[0]]
		m.MeanBalance = m.MeanBalanceByCurrency[currencies[0]]
		m.MedianBalance = m.MedianBalanceByCurrency[currencies[0]]
		m.MeanMedianDivergence = m.MeanMedianDivergenceByCurrency[currencies[0]]
		m.Top10PctShare = m.Top10PctShareByCurrency[currencies[0]]
		m.ArbitrageIndex = m.ArbitrageIndexByCurrency[currencies[0]]
		m.Velocity = m.VelocityByCurrency[currencies[0]]
		m.InflationRate = m.InflationRateByCurrency[currencies[0]]
	}

	m.PopulationByRole, m.RoleShares, m.TotalAgents = populationByRole(state, personaDistribution)

	m.SupplyByResource = supplyByResource(state)

	m.AvgSatisfaction = avgSatisfaction(state)
	m.ChurnRate = churnRate(events, m.TotalAgents)

	m.EventCompletionRate = eventCompletionRate(events)

	proxy := m.Velocity * m.TotalAgents
	if o.store != nil {
		window := o.store.EngagementWindow()
		if commit {
			o.store.PushEngagementSample(proxy)
			window = o.store.EngagementWindow()
		} else {
			window = append(append([]float64(nil), window...), proxy)
		}
		m.CyclicalPeaks, m.CyclicalValleys = localExtrema(window)
	}

	if len(state.Systems) > 0 {
		m.Custom = map[string]float64{}
	}

	sanitizeNaNs(&m)

	if commit {
		snapshot := m
		o.prev = &snapshot
		o.prevOK = true
	}

	return m
}

// inferCurrencies derives a currency set from balances/prices when the host
// omits the explicit Currencies field.
func inferCurrencies(state types.EconomyState) []string {
	seen := map[string]bool{}
	var out []string
	for _, balances := range state.AgentBalances {
		for c := range balances {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

func perCurrencyBalances(state types.EconomyState, currency string) []float64 {
	out := make([]float64, 0, len(state.AgentBalances))
	for _, balances := range state.AgentBalances {
		if v, ok := balances[currency]; ok {
			out = append(out, v)
		}
	}
	return out
}

// sum totals a slice of float64 values through decimal.Decimal, the way the
// reference's pkg/utils.CalculateMean accumulates over []decimal.Decimal
// rather than summing float64s directly, so repeated balance/supply
// accumulation doesn't compound binary float rounding.
func sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

// flowVolumes implements faucetVolume/sinkVolume: faucet counts mint+enter,
// sink counts burn+consume, both weighted by amount, for one currency.
func flowVolumes(events []types.EconomicEvent, currency string) (faucet, sink float64) {
	faucetD, sinkD := decimal.Zero, decimal.Zero
	for _, e := range events {
		if e.Currency != "" && e.Currency != currency {
			continue
		}
		switch e.Type {
		case types.EventMint, types.EventEnter:
			faucetD = faucetD.Add(decimal.NewFromFloat(e.Amount))
		case types.EventBurn, types.EventConsume:
			sinkD = sinkD.Add(decimal.NewFromFloat(e.Amount))
		}
	}
	return faucetD.InexactFloat64(), sinkD.InexactFloat64()
}

func velocity(events []types.EconomicEvent, currency string, supply float64) float64 {
	traded := 0.0
	for _, e := range events {
		if e.Type == types.EventTrade && (e.Currency == "" || e.Currency == currency) {
			traded += e.Amount
		}
	}
	return traded / math.Max(1, supply)
}

// giniCoefficient is the standard Lorenz-curve computation over non-zero
// balances; 0 when <=1 holder remains.
func giniCoefficient(balances []float64) float64 {
	nonZero := make([]float64, 0, len(balances))
	for _, b := range balances {
		if b != 0 {
			nonZero = append(nonZero, b)
		}
	}
	n := len(nonZero)
	if n <= 1 {
		return 0
	}
	sort.Float64s(nonZero)

	var weightedSum, total float64
	for i, v := range nonZero {
		weightedSum += float64(i+1) * v
		total += v
	}
	if total == 0 {
		return 0
	}
	return (2*weightedSum)/(float64(n)*total) - float64(n+1)/float64(n)
}

func meanMedian(balances []float64) (mean, median float64) {
	if len(balances) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), balances...)
	sort.Float64s(sorted)
	mean = sum(sorted) / float64(len(sorted))
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}
	return mean, median
}

// top10PctShare returns the share of supply held by the top ceil(n/10)
// holders.
func top10PctShare(balances []float64, supply float64) float64 {
	if len(balances) == 0 || supply == 0 {
		return 0
	}
	sorted := append([]float64(nil), balances...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	topN := int(math.Ceil(float64(len(sorted)) / 10))
	if topN < 1 {
		topN = 1
	}
	if topN > len(sorted) {
		topN = len(sorted)
	}
	top := sum(sorted[:topN])
	return top / supply
}

// arbitrageIndex is min(1, stddev(ln p)) over positive prices; 0 if fewer
// than 2 positive prices or all equal.
func arbitrageIndex(prices map[string]float64) float64 {
	var logs []float64
	for _, p := range prices {
		if p > 0 {
			logs = append(logs, math.Log(p))
		}
	}
	if len(logs) < 2 {
		return 0
	}
	allEqual := true
	for _, v := range logs[1:] {
		if v != logs[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return 0
	}
	mean := sum(logs) / float64(len(logs))
	var variance float64
	for _, v := range logs {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(logs))
	sd := math.Sqrt(variance)
	return math.Min(1, sd)
}

func accumulateFlowBySystemSource(events []types.EconomicEvent, currency string, bySystem, bySource map[string]float64) {
	for _, e := range events {
		if e.Currency != "" && e.Currency != currency {
			continue
		}
		// enter is a global faucet excluded from system/source attribution,
		// per §4.1: onboarding bonuses would otherwise inflate system-local
		// metrics.
		if e.Type == types.EventEnter {
			continue
		}
		if e.System != "" {
			bySystem[e.System] += e.Amount
		}
		if e.SourceOrSink != "" {
			bySource[e.SourceOrSink] += e.Amount
		}
	}
}

// populationByRole derives role population from AgentRoles; if that map is
// empty or every agent shares one role, it falls back to scaling the
// supplied personaDistribution by totalAgents.
func populationByRole(state types.EconomyState, personaDistribution map[string]float64) (population, shares map[string]float64, totalAgents float64) {
	totalAgents = float64(len(state.AgentBalances))
	if totalAgents == 0 {
		totalAgents = float64(len(state.AgentRoles))
	}

	distinctRoles := map[string]bool{}
	for _, role := range state.AgentRoles {
		distinctRoles[role] = true
	}

	population = map[string]float64{}
	if len(state.AgentRoles) > 0 && len(distinctRoles) > 1 {
		for _, role := range state.AgentRoles {
			population[role]++
		}
	} else if len(personaDistribution) > 0 {
		for role, frac := range personaDistribution {
			population[role] = frac * totalAgents
		}
	}

	shares = map[string]float64{}
	if totalAgents > 0 {
		for role, count := range population {
			shares[role] = count / totalAgents
		}
	}
	return population, shares, totalAgents
}

func supplyByResource(state types.EconomyState) map[string]float64 {
	out := map[string]float64{}
	for _, inv := range state.AgentInventories {
		for resource, qty := range inv {
			out[resource] += qty
		}
	}
	return out
}

func avgSatisfaction(state types.EconomyState) float64 {
	if len(state.AgentSatisfaction) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range state.AgentSatisfaction {
		total += s
	}
	return total / float64(len(state.AgentSatisfaction))
}

func churnRate(events []types.EconomicEvent, totalAgents float64) float64 {
	if totalAgents == 0 {
		return 0
	}
	churned := 0.0
	for _, e := range events {
		if e.Type == types.EventChurn {
			churned++
		}
	}
	return churned / totalAgents
}

// eventCompletionRate may legitimately be NaN to signal "not applicable";
// principles consuming it must check for that.
func eventCompletionRate(events []types.EconomicEvent) float64 {
	total := 0
	produced := 0
	for _, e := range events {
		if e.Type == types.EventProduce {
			total++
			produced++
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return float64(produced) / float64(total)
}

// localExtrema scans a short rolling history for local extrema, the
// "shark-tooth" cyclical pattern the design notes describe.
func localExtrema(window []float64) (peaks, valleys []float64) {
	for i := 1; i < len(window)-1; i++ {
		if window[i] > window[i-1] && window[i] > window[i+1] {
			peaks = append(peaks, window[i])
		}
		if window[i] < window[i-1] && window[i] < window[i+1] {
			valleys = append(valleys, window[i])
		}
	}
	return peaks, valleys
}

// sanitizeNaNs replaces any NaN scalar with 0, except eventCompletionRate
// which is permitted to signal "not applicable" via NaN.
func sanitizeNaNs(m *types.EconomyMetrics) {
	if math.IsNaN(m.TotalSupply) {
		m.TotalSupply = 0
	}
	if math.IsNaN(m.NetFlow) {
		m.NetFlow = 0
	}
	if math.IsNaN(m.Velocity) {
		m.Velocity = 0
	}
	if math.IsNaN(m.InflationRate) {
		m.InflationRate = 0
	}
	if math.IsNaN(m.GiniCoefficient) {
		m.GiniCoefficient = 0
	}
	if math.IsNaN(m.AvgSatisfaction) {
		m.AvgSatisfaction = 0
	}
	for c, v := range m.InflationRateByCurrency {
		if math.IsNaN(v) {
			m.InflationRateByCurrency[c] = 0
		}
	}
}
