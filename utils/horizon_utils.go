package utils

import "sort"

// DefaultHorizons are the forecast ranges offered when nothing else is configured.
var DefaultHorizons = []int{7, 14, 30}

// HorizonSet builds a lookup set from a list of horizons, dropping non-positive values.
func HorizonSet(days []int) map[int]bool {
	set := make(map[int]bool, len(days))
	for _, d := range days {
		if d > 0 {
			set[d] = true
		}
	}
	return set
}

// SortedHorizons returns the members of set in ascending order.
func SortedHorizons(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// MaxHorizon returns the largest member of set, or 0 for an empty set.
func MaxHorizon(set map[int]bool) int {
	max := 0
	for d := range set {
		if d > max {
			max = d
		}
	}
	return max
}
