package simulator

import (
	"math"
	"reflect"
	"sort"

	"github.com/atlas-desktop/agente/internal/economy/types"
)

// percentileMetrics computes the element-wise percentile across a slice of
// endpoint snapshots for every float64 scalar field (Tick excepted), using
// the same reflect-driven field walk as metricstore's aggregate so the two
// packages stay consistent about what counts as a "scalar metric field".
// Map and slice fields are taken from whichever endpoint's scalar distance
// to the percentile target (by TotalSupply) is closest, giving a coherent
// snapshot rather than independently-percentiled map entries.
func percentileMetrics(endpoints []types.EconomyMetrics, p float64) types.EconomyMetrics {
	if len(endpoints) == 0 {
		return types.EconomyMetrics{}
	}
	out := representativeSnapshot(endpoints, p)

	v := reflect.ValueOf(&out).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if fv.Kind() != reflect.Float64 || field.Name == "Tick" {
			continue
		}
		fv.SetFloat(percentileField(endpoints, i, p))
	}
	return out
}

// meanMetrics computes the element-wise mean of every float64 scalar field
// (Tick excepted) across endpoint snapshots; map and slice fields are taken
// from the last endpoint.
func meanMetrics(endpoints []types.EconomyMetrics) types.EconomyMetrics {
	if len(endpoints) == 0 {
		return types.EconomyMetrics{}
	}
	out := endpoints[len(endpoints)-1]

	v := reflect.ValueOf(&out).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if fv.Kind() != reflect.Float64 || field.Name == "Tick" {
			continue
		}
		fv.SetFloat(meanField(endpoints, i))
	}
	return out
}

func percentileField(endpoints []types.EconomyMetrics, fieldIdx int, p float64) float64 {
	values := make([]float64, 0, len(endpoints))
	for _, m := range endpoints {
		val := reflect.ValueOf(m).Field(fieldIdx).Float()
		if math.IsNaN(val) {
			continue
		}
		values = append(values, val)
	}
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	idx := int(p * float64(len(values)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}

func meanField(endpoints []types.EconomyMetrics, fieldIdx int) float64 {
	sum := 0.0
	count := 0
	for _, m := range endpoints {
		val := reflect.ValueOf(m).Field(fieldIdx).Float()
		if math.IsNaN(val) {
			continue
		}
		sum += val
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// representativeSnapshot picks the endpoint whose TotalSupply is closest to
// the requested percentile of the TotalSupply distribution, so map/slice
// fields in the returned metrics come from one internally-consistent
// iteration rather than being percentiled independently per key.
func representativeSnapshot(endpoints []types.EconomyMetrics, p float64) types.EconomyMetrics {
	type indexed struct {
		idx   int
		value float64
	}
	sorted := make([]indexed, len(endpoints))
	for i, m := range endpoints {
		sorted[i] = indexed{idx: i, value: m.TotalSupply}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].value < sorted[j].value })
	pos := int(p * float64(len(sorted)-1))
	if pos < 0 {
		pos = 0
	}
	if pos >= len(sorted) {
		pos = len(sorted) - 1
	}
	return endpoints[sorted[pos].idx]
}
