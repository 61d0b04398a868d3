package watch

import "herdwatch/internal/types"

// Aggregate reduces a batch of analyses into one state: the per-counter
// arithmetic mean with truncating division. The second return value is
// false for an empty batch; callers must treat "no data" differently
// from an all-zero state.
func Aggregate(analyses []types.Analysis) (types.State, bool) {
	if len(analyses) == 0 {
		return types.State{}, false
	}
	var cows, calves int
	for _, a := range analyses {
		cows += a.Cows
		calves += a.Calves
	}
	n := len(analyses)
	return types.State{Cows: cows / n, Calves: calves / n}, true
}
