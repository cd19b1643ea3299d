package selective

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ArgsortDescending returns the permutation that orders xs from largest to
// smallest. Equal values keep their input order.
func ArgsortDescending(xs []float64) []int {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return xs[idx[a]] > xs[idx[b]]
	})
	return idx
}

// ArgsortAscending returns the permutation that orders xs from smallest to
// largest. Equal values keep their input order.
func ArgsortAscending(xs []float64) []int {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return xs[idx[a]] < xs[idx[b]]
	})
	return idx
}

// CumulativeCorrect returns the running count of true values: element k-1
// holds the number of correct predictions among the first k.
func CumulativeCorrect(correct []bool) []float64 {
	ones := make([]float64, len(correct))
	for i, c := range correct {
		if c {
			ones[i] = 1
		}
	}
	return floats.CumSum(make([]float64, len(ones)), ones)
}

// Negate returns a negated copy of xs.
func Negate(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	floats.Scale(-1, out)
	return out
}

// Percentile returns the p-th percentile (0 <= p <= 100) of xs using
// linear interpolation between the two closest ranks: the value at
// fractional rank p/100*(n-1) of the sorted data. xs is not modified.
// Returns NaN for empty input.
func Percentile(xs []float64, p float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// percentileSorted is Percentile over data that is already sorted
// ascending.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	switch {
	case rank <= 0:
		return sorted[0]
	case rank >= float64(n-1):
		return sorted[n-1]
	}
	lo := math.Floor(rank)
	hi := math.Ceil(rank)
	a, b := sorted[int(lo)], sorted[int(hi)]
	if lo == hi {
		return a
	}
	return a + (b-a)*(rank-lo)
}
