package utils

// BoolsToInts serializes a boolean vector as 0/1 integers.
func BoolsToInts(v []bool) []int {
	out := make([]int, len(v))
	for i, b := range v {
		if b {
			out[i] = 1
		}
	}
	return out
}

// CloneBools returns a copy of v that shares no memory with it.
func CloneBools(v []bool) []bool {
	return append([]bool(nil), v...)
}
