package providers

import "sort"

// seriesByEntity flattens per-entity day-keyed costs into day-ordered
// series. Only days an entity actually reported cost for become
// observations; missing days are not zero-filled, so a sparsely billed
// entity keeps a short series and stays below the detector's
// minimum-observation guard.
func seriesByEntity(byEntity map[string]map[string]float64) map[string][]float64 {
	series := make(map[string][]float64, len(byEntity))
	for entity, costs := range byEntity {
		days := make([]string, 0, len(costs))
		for day := range costs {
			days = append(days, day)
		}
		sort.Strings(days)

		seq := make([]float64, 0, len(days))
		for _, day := range days {
			seq = append(seq, costs[day])
		}
		series[entity] = seq
	}
	return series
}
