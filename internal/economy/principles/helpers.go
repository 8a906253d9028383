package principles

import "sort"

// sortedKeys returns a map's keys in deterministic (sorted) order so
// principles that scan per-currency maps behave identically across runs.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// worstAbove scans a per-currency map and returns the currency with the
// highest value exceeding threshold, so scoped actions target the sick
// currency rather than the first one in iteration order.
func worstAbove(m map[string]float64, threshold float64) (currency string, value float64, found bool) {
	for _, c := range sortedKeys(m) {
		v := m[c]
		if v > threshold && (!found || v > value) {
			currency, value, found = c, v, true
		}
	}
	return currency, value, found
}

// worstBelow is worstAbove's mirror: returns the currency whose value falls
// furthest under threshold.
func worstBelow(m map[string]float64, threshold float64) (currency string, value float64, found bool) {
	for _, c := range sortedKeys(m) {
		v := m[c]
		if v < threshold && (!found || v < value) {
			currency, value, found = c, v, true
		}
	}
	return currency, value, found
}
