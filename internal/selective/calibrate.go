package selective

import (
	"fmt"
	"math"
	"sort"
)

// DefaultCoverages are the coverage percentages reported when none are
// configured.
var DefaultCoverages = []float64{100, 99, 98, 97, 95, 90, 85, 80, 75, 70, 60, 50, 40, 30, 20, 10}

// ValidateCoverages checks that every coverage percentage lies in (0, 100]
// and that at least one is given.
func ValidateCoverages(coverages []float64) error {
	if len(coverages) == 0 {
		return fmt.Errorf("no coverage levels given: %w", ErrConfiguration)
	}
	for _, c := range coverages {
		if math.IsNaN(c) || c <= 0 || c > 100 {
			return fmt.Errorf("coverage must be in (0, 100], got %v: %w", c, ErrConfiguration)
		}
	}
	return nil
}

// Calibrate selects, for every requested coverage percentage, the examples
// with the lowest reservation scores and reports the achieved coverage and
// accuracy. scores must be oriented so that higher means reject first.
//
// The threshold for coverage c is the (100-c)-th percentile of the negated
// scores; examples whose negated score is at or above it are kept. Ties at
// the threshold are all kept, so the achieved coverage may exceed c.
func Calibrate(scores []float64, correct []bool, coverages []float64) (CoverageReport, error) {
	if len(scores) != len(correct) {
		return nil, fmt.Errorf("calibrate with %d scores and %d correctness flags: %w",
			len(scores), len(correct), ErrInvalidState)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("calibrate with no examples: %w", ErrInvalidState)
	}
	if err := ValidateCoverages(coverages); err != nil {
		return nil, err
	}

	neg := Negate(scores)
	sorted := make([]float64, len(neg))
	copy(sorted, neg)
	sort.Float64s(sorted)

	n := float64(len(scores))
	report := make(CoverageReport, 0, len(coverages))
	for _, c := range coverages {
		threshold := percentileSorted(sorted, 100-c)

		selected, selectedCorrect := 0, 0
		for i, v := range neg {
			if v >= threshold {
				selected++
				if correct[i] {
					selectedCorrect++
				}
			}
		}
		if selected == 0 {
			return nil, fmt.Errorf("coverage %v%% at threshold %v: %w", c, -threshold, ErrEmptySelection)
		}

		report = append(report, CoveragePoint{
			Target:    c,
			Coverage:  float64(selected) / n,
			Accuracy:  float64(selectedCorrect) / float64(selected),
			Threshold: -threshold,
			Selected:  selected,
		})
	}
	return report, nil
}
