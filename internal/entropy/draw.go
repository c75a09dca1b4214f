package entropy

// Uniform returns a value in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Chance reports whether a draw falls under p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// IntBetween returns an integer in [lo, hi].
func IntBetween(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Pick returns a uniformly chosen element. ok is false for an empty slice.
func Pick[T any](src Source, items []T) (v T, ok bool) {
	if len(items) == 0 {
		return v, false
	}
	return items[src.Intn(len(items))], true
}

// Weighted returns an index chosen with probability proportional to weights.
// Non-positive weights are never chosen unless every weight is non-positive,
// in which case the choice is uniform. Returns -1 for an empty slice.
func Weighted(src Source, weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return src.Intn(len(weights))
	}
	r := src.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if r < w {
			return i
		}
		r -= w
	}
	return last
}

// Sample returns k distinct indices of [0, n) in random order.
func Sample(src Source, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + src.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
