package tour

import "math"

// penalize divides fitness by deficit+1 when the tour revisits points. One
// duplicate halves the fitness, two divide it by three, and so on.
func penalize(fitness float64, deficit int) float64 {
	if deficit > 0 {
		return fitness / float64(deficit+1)
	}
	return fitness
}

// clampFitness maps negative and NaN fitness to zero so selection never sees
// a value outside [0, +Inf).
func clampFitness(fitness float64) float64 {
	if fitness < 0 || math.IsNaN(fitness) {
		return 0
	}
	return fitness
}

// IsPermutation reports whether genes holds each index of [0, len(genes))
// exactly once.
func IsPermutation(genes []int) bool {
	seen := make([]bool, len(genes))
	for _, g := range genes {
		if g < 0 || g >= len(genes) || seen[g] {
			return false
		}
		seen[g] = true
	}
	return true
}

// Duplicates returns how many positions repeat an index already seen.
func Duplicates(genes []int) int {
	seen := make(map[int]struct{}, len(genes))
	dup := 0
	for _, g := range genes {
		if _, ok := seen[g]; ok {
			dup++
			continue
		}
		seen[g] = struct{}{}
	}
	return dup
}
