package selective

import (
	"fmt"

	"github.com/banshee-data/selective.report/internal/monitoring"
	"gonum.org/v1/gonum/stat"
)

// Score sources reported by an evaluation pass.
const (
	SourceAbstention      = "abstention"
	SourceSoftmaxResponse = "softmax_response"
)

// Evaluator carries the settings shared by every pass of a run.
type Evaluator struct {
	Risk      float64
	Coverages []float64
	Mode      ScoreMode
}

// NewEvaluator validates the settings and returns an Evaluator.
func NewEvaluator(risk float64, coverages []float64, mode ScoreMode) (*Evaluator, error) {
	if err := ValidateRisk(risk); err != nil {
		return nil, err
	}
	if err := ValidateCoverages(coverages); err != nil {
		return nil, err
	}
	cov := make([]float64, len(coverages))
	copy(cov, coverages)
	return &Evaluator{Risk: risk, Coverages: cov, Mode: mode}, nil
}

// Pass accumulates the examples of one train or test epoch.
type Pass struct {
	Phase string
	Epoch int

	eval    *Evaluator
	sac     *AccuracyConstraint
	derived []Derived
}

// NewPass starts a pass with a fresh streaming metric.
func (e *Evaluator) NewPass(phase string, epoch int) *Pass {
	// Risk was validated by NewEvaluator.
	sac, _ := NewAccuracyConstraint(e.Risk)
	return &Pass{Phase: phase, Epoch: epoch, eval: e, sac: sac}
}

// Len returns the number of examples observed.
func (p *Pass) Len() int { return len(p.derived) }

// Observe scores one output vector against its label and records it.
func (p *Pass) Observe(logits []float64, label int) error {
	d, err := DeriveScores(logits, label, p.eval.Mode)
	if err != nil {
		return fmt.Errorf("observe example %d: %w", len(p.derived), err)
	}
	return p.ObserveDerived(d)
}

// ObserveDerived records already-derived scores, as one sub-batch of the
// streaming metric.
func (p *Pass) ObserveDerived(ds ...Derived) error {
	conf := make([]float64, len(ds))
	correct := make([]bool, len(ds))
	for i, d := range ds {
		conf[i] = d.Confidence
		correct[i] = d.Correct
	}
	if err := p.sac.Update(conf, correct); err != nil {
		return err
	}
	p.derived = append(p.derived, ds...)
	return nil
}

// PassResult summarises a finished pass.
type PassResult struct {
	Phase string
	Epoch int
	N     int
	// SAC is the largest coverage whose accuracy meets the risk bound.
	SAC  float64
	Top1 float64
	// Reports keyed by score source, calibrated by percentile threshold.
	Reports map[string]CoverageReport
	// QuickReports keyed by score source, taken as sorted prefixes.
	QuickReports map[string]CoverageReport
}

// Finish computes the pass metric and both coverage reports.
func (p *Pass) Finish() (PassResult, error) {
	sac, err := p.sac.Compute()
	if err != nil {
		return PassResult{}, fmt.Errorf("%s pass epoch %d: %w", p.Phase, p.Epoch, err)
	}

	n := len(p.derived)
	correct := make([]bool, n)
	hits := make([]float64, n)
	reservation := make([]float64, n)
	quickReservation := make([]float64, n)
	srReservation := make([]float64, n)
	for i, d := range p.derived {
		correct[i] = d.Correct
		if d.Correct {
			hits[i] = 1
		}
		reservation[i] = d.Reservation
		srReservation[i] = -d.SoftmaxResponse
		if p.eval.Mode == ModeCrossEntropy {
			quickReservation[i] = -d.NegEntropy
		} else {
			quickReservation[i] = d.Reservation
		}
	}

	res := PassResult{
		Phase:        p.Phase,
		Epoch:        p.Epoch,
		N:            n,
		SAC:          sac,
		Top1:         stat.Mean(hits, nil),
		Reports:      make(map[string]CoverageReport, 2),
		QuickReports: make(map[string]CoverageReport, 2),
	}

	sources := []struct {
		name  string
		full  []float64
		quick []float64
	}{
		{SourceAbstention, reservation, quickReservation},
		{SourceSoftmaxResponse, srReservation, srReservation},
	}
	for _, s := range sources {
		rep, err := Calibrate(s.full, correct, p.eval.Coverages)
		if err != nil {
			return PassResult{}, fmt.Errorf("%s pass epoch %d, %s: %w", p.Phase, p.Epoch, s.name, err)
		}
		res.Reports[s.name] = rep

		quick, err := PrefixReport(s.quick, correct, p.eval.Coverages)
		if err != nil {
			return PassResult{}, fmt.Errorf("%s pass epoch %d, %s quick: %w", p.Phase, p.Epoch, s.name, err)
		}
		res.QuickReports[s.name] = quick
	}

	monitoring.Logf("%s pass epoch %d: n=%d sac=%.4f top1=%.4f", p.Phase, p.Epoch, n, sac, res.Top1)
	return res, nil
}
