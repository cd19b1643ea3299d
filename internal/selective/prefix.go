package selective

import (
	"fmt"
	"math"
)

// PrefixReport is the quick per-epoch variant of Calibrate. It orders the
// examples by reservation score ascending and keeps the first
// round(N*c/100) of them (halves round to even), with no threshold
// interpolation. Equal scores keep their input order.
func PrefixReport(scores []float64, correct []bool, coverages []float64) (CoverageReport, error) {
	if len(scores) != len(correct) {
		return nil, fmt.Errorf("prefix report with %d scores and %d correctness flags: %w",
			len(scores), len(correct), ErrInvalidState)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("prefix report with no examples: %w", ErrInvalidState)
	}
	if err := ValidateCoverages(coverages); err != nil {
		return nil, err
	}

	order := ArgsortAscending(scores)
	sorted := make([]bool, len(order))
	for i, j := range order {
		sorted[i] = correct[j]
	}
	cum := CumulativeCorrect(sorted)

	n := len(scores)
	report := make(CoverageReport, 0, len(coverages))
	for _, c := range coverages {
		k := int(math.RoundToEven(float64(n) / 100 * c))
		if k > n {
			k = n
		}
		if k == 0 {
			return nil, fmt.Errorf("coverage %v%% of %d examples: %w", c, n, ErrEmptySelection)
		}
		report = append(report, CoveragePoint{
			Target:    c,
			Coverage:  float64(k) / float64(n),
			Accuracy:  cum[k-1] / float64(k),
			Threshold: scores[order[k-1]],
			Selected:  k,
		})
	}
	return report, nil
}
