package selective

import (
	"fmt"
	"math"
)

// DefaultRisk is the accuracy bound used when none is configured.
const DefaultRisk = 0.99

// AccuracyConstraint is a streaming selective-accuracy metric. It collects
// (confidence, correctness) pairs over one evaluation pass and reports the
// largest fraction of the most-confident examples whose accuracy stays at
// or above the configured risk bound.
//
// An instance belongs to a single pass: feed it with Update, read it once
// with Compute, then Reset or discard it. It is not safe for concurrent
// use; callers that score batches in parallel must serialise Update calls.
type AccuracyConstraint struct {
	risk    float64
	conf    []float64
	correct []bool
}

// ValidateRisk checks that risk lies in (0, 1].
func ValidateRisk(risk float64) error {
	if math.IsNaN(risk) || risk <= 0 || risk > 1 {
		return fmt.Errorf("risk must be in (0, 1], got %v: %w", risk, ErrConfiguration)
	}
	return nil
}

// NewAccuracyConstraint creates an empty metric with the given risk bound.
func NewAccuracyConstraint(risk float64) (*AccuracyConstraint, error) {
	if err := ValidateRisk(risk); err != nil {
		return nil, err
	}
	return &AccuracyConstraint{risk: risk}, nil
}

// Risk returns the configured accuracy bound.
func (m *AccuracyConstraint) Risk() float64 { return m.risk }

// Len returns the number of examples accumulated so far.
func (m *AccuracyConstraint) Len() int { return len(m.conf) }

// Update appends one sub-batch. confidences[i] and correct[i] describe the
// same example.
func (m *AccuracyConstraint) Update(confidences []float64, correct []bool) error {
	if len(confidences) != len(correct) {
		return fmt.Errorf("update with %d confidences and %d correctness flags: %w",
			len(confidences), len(correct), ErrInvalidState)
	}
	m.conf = append(m.conf, confidences...)
	m.correct = append(m.correct, correct...)
	return nil
}

// Compute returns the largest coverage k/N such that the k most-confident
// examples have accuracy >= risk. Every prefix is considered, since prefix
// accuracy is not monotonic in k. It returns 0 when no prefix meets the
// bound, and ErrInvalidState when nothing has been accumulated.
func (m *AccuracyConstraint) Compute() (float64, error) {
	n := len(m.conf)
	if n == 0 {
		return 0, fmt.Errorf("compute with no accumulated examples: %w", ErrInvalidState)
	}

	order := ArgsortDescending(m.conf)
	sorted := make([]bool, n)
	for i, j := range order {
		sorted[i] = m.correct[j]
	}
	cum := CumulativeCorrect(sorted)

	best := 0
	for k := 1; k <= n; k++ {
		if cum[k-1]/float64(k) >= m.risk {
			best = k
		}
	}
	return float64(best) / float64(n), nil
}

// Reset discards accumulated examples so the metric can serve a new pass.
func (m *AccuracyConstraint) Reset() {
	m.conf = nil
	m.correct = nil
}
