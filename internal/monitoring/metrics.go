package monitoring

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink publishes evaluation results as Prometheus metrics. It takes the
// place of a scalar summary writer: one gauge per pass-level value plus a
// gauge per (score source, coverage target).
type Sink struct {
	sac      *prometheus.GaugeVec
	top1     *prometheus.GaugeVec
	coverage *prometheus.GaugeVec
	accuracy *prometheus.GaugeVec
	passes   *prometheus.CounterVec
}

// NewSink creates the metrics and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewSink(reg prometheus.Registerer) (*Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &Sink{
		sac: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "selective",
			Name:      "sac_coverage",
			Help:      "Largest coverage whose accuracy meets the risk bound, per phase.",
		}, []string{"phase"}),
		top1: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "selective",
			Name:      "top1_accuracy",
			Help:      "Top-1 accuracy over the whole pass, per phase.",
		}, []string{"phase"}),
		coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "selective",
			Name:      "achieved_coverage",
			Help:      "Achieved coverage fraction for a requested coverage target.",
		}, []string{"source", "target"}),
		accuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "selective",
			Name:      "coverage_accuracy",
			Help:      "Accuracy on the examples kept at a requested coverage target.",
		}, []string{"source", "target"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "selective",
			Name:      "passes_total",
			Help:      "Evaluation passes finished, per phase.",
		}, []string{"phase"}),
	}
	for _, c := range []prometheus.Collector{s.sac, s.top1, s.coverage, s.accuracy, s.passes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register evaluation metric: %w", err)
		}
	}
	return s, nil
}

// RecordPass publishes the pass-level values for phase.
func (s *Sink) RecordPass(phase string, sac, top1 float64) {
	s.sac.WithLabelValues(phase).Set(sac)
	s.top1.WithLabelValues(phase).Set(top1)
	s.passes.WithLabelValues(phase).Inc()
}

// RecordCoverage publishes one calibrated point for a score source.
func (s *Sink) RecordCoverage(source string, target, coverage, accuracy float64) {
	label := TargetLabel(target)
	s.coverage.WithLabelValues(source, label).Set(coverage)
	s.accuracy.WithLabelValues(source, label).Set(accuracy)
}

// TargetLabel formats a coverage percentage as a label value ("95", "99.5").
func TargetLabel(target float64) string {
	return strconv.FormatFloat(target, 'f', -1, 64)
}
