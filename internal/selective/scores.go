package selective

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScoreMode says how a model's output vector is laid out.
type ScoreMode int

const (
	// ModeCrossEntropy outputs one logit per class and nothing else.
	ModeCrossEntropy ScoreMode = iota
	// ModeAbstentionClass appends an extra "abstain" logit after the
	// class logits.
	ModeAbstentionClass
)

func (m ScoreMode) String() string {
	switch m {
	case ModeCrossEntropy:
		return "cross_entropy"
	case ModeAbstentionClass:
		return "abstention_class"
	default:
		return fmt.Sprintf("ScoreMode(%d)", int(m))
	}
}

// ParseScoreMode maps a training loss name to the output layout it
// produces.
func ParseScoreMode(loss string) (ScoreMode, error) {
	switch loss {
	case "ce", "max":
		return ModeCrossEntropy, nil
	case "sat", "sat_entropy", "gambler":
		return ModeAbstentionClass, nil
	default:
		return 0, fmt.Errorf("unknown loss %q: %w", loss, ErrConfiguration)
	}
}

// Derived holds the scores extracted from one example's output vector.
type Derived struct {
	Prediction int
	Correct    bool
	// Confidence feeds the streaming metric (higher = more trusted).
	Confidence float64
	// Reservation feeds the calibrator (higher = reject first).
	Reservation float64
	// NegEntropy is sum(p*log p) over the full softmax.
	NegEntropy float64
	// SoftmaxResponse is the largest class probability, abstain logit
	// excluded.
	SoftmaxResponse float64
}

// Softmax returns the softmax of logits, computed through log-sum-exp so
// large logits do not overflow.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	lse := floats.LogSumExp(logits)
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l - lse)
	}
	return out
}

// DeriveScores turns one output vector and its ground-truth label into
// the confidence and reservation scores used by the metric and calibrator.
func DeriveScores(logits []float64, label int, mode ScoreMode) (Derived, error) {
	classes := logits
	if mode == ModeAbstentionClass {
		if len(logits) < 2 {
			return Derived{}, fmt.Errorf("abstention output needs at least 2 logits, got %d: %w",
				len(logits), ErrInvalidState)
		}
		classes = logits[:len(logits)-1]
	}
	if len(classes) == 0 {
		return Derived{}, fmt.Errorf("empty output vector: %w", ErrInvalidState)
	}

	probs := Softmax(logits)
	pred := floats.MaxIdx(classes)

	var negEntropy float64
	for _, p := range probs {
		if p > 0 {
			negEntropy += p * math.Log(p)
		}
	}

	d := Derived{
		Prediction:      pred,
		Correct:         pred == label,
		NegEntropy:      negEntropy,
		SoftmaxResponse: floats.Max(Softmax(classes)),
	}
	switch mode {
	case ModeAbstentionClass:
		abstain := probs[len(probs)-1]
		d.Reservation = abstain
		d.Confidence = 1 - abstain
	default:
		top := floats.Max(probs)
		d.Reservation = 1 - top
		d.Confidence = top
	}
	return d, nil
}
