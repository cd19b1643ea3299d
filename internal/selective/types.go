package selective

// ScoreRecord is one evaluated example.
type ScoreRecord struct {
	Confidence float64 `json:"confidence"`
	Correct    bool    `json:"correct"`
}

// EvaluationBatch is every record gathered during one pass. Coverage
// fractions are relative to its length.
type EvaluationBatch []ScoreRecord

// Split returns the confidences and correctness flags as parallel slices.
func (b EvaluationBatch) Split() ([]float64, []bool) {
	conf := make([]float64, len(b))
	correct := make([]bool, len(b))
	for i, r := range b {
		conf[i] = r.Confidence
		correct[i] = r.Correct
	}
	return conf, correct
}

// CoveragePoint is the outcome for one requested coverage level.
type CoveragePoint struct {
	// Target is the requested coverage percentage in (0, 100].
	Target float64 `json:"target"`
	// Coverage is the achieved fraction of examples kept.
	Coverage float64 `json:"coverage"`
	// Accuracy is the fraction of kept examples predicted correctly.
	Accuracy float64 `json:"accuracy"`
	// Threshold is the reservation score at or below which an example is
	// kept.
	Threshold float64 `json:"threshold"`
	// Selected is the number of kept examples.
	Selected int `json:"selected"`
}

// ErrorPercent returns the selective error as a percentage.
func (p CoveragePoint) ErrorPercent() float64 {
	return (1 - p.Accuracy) * 100
}

// CoverageReport holds one point per requested coverage, in request order.
type CoverageReport []CoveragePoint

// Targets returns the requested coverage percentages.
func (r CoverageReport) Targets() []float64 {
	out := make([]float64, len(r))
	for i, p := range r {
		out[i] = p.Target
	}
	return out
}
