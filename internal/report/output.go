package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/banshee-data/selective.report/internal/selective"
)

// CSVHeader is the column layout written by CSVWriter.
var CSVHeader = []string{
	"run", "phase", "epoch", "source", "target", "coverage", "accuracy", "error_percent", "threshold", "selected",
}

// CSVWriter wraps csv.Writer with methods for coverage report output.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter creates a CSVWriter writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteReport appends one row per point of report, writing the header
// first if it has not been written yet.
func (c *CSVWriter) WriteReport(run string, res selective.PassResult, source string, report selective.CoverageReport) error {
	if !c.wroteHeader {
		if err := c.w.Write(CSVHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	for _, p := range report {
		row := []string{
			run,
			res.Phase,
			fmt.Sprintf("%d", res.Epoch),
			source,
			fmt.Sprintf("%.0f", p.Target),
			fmt.Sprintf("%.6f", p.Coverage),
			fmt.Sprintf("%.6f", p.Accuracy),
			fmt.Sprintf("%.3f", p.ErrorPercent()),
			fmt.Sprintf("%.6f", p.Threshold),
			fmt.Sprintf("%d", p.Selected),
		}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// WriteResult writes both calibrated reports of a pass, abstention first.
func (c *CSVWriter) WriteResult(run string, res selective.PassResult) error {
	for _, source := range []string{selective.SourceAbstention, selective.SourceSoftmaxResponse} {
		rep, ok := res.Reports[source]
		if !ok {
			continue
		}
		if err := c.WriteReport(run, res, source, rep); err != nil {
			return fmt.Errorf("write %s report: %w", source, err)
		}
	}
	return nil
}
