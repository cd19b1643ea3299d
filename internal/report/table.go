package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/selective.report/internal/selective"
)

// SourceTitle returns the table heading for a score source.
func SourceTitle(source string) string {
	switch source {
	case selective.SourceAbstention:
		return "Abstention\tLogit"
	case selective.SourceSoftmaxResponse:
		return "Softmax\tResponse"
	default:
		return source
	}
}

// WriteTable writes a calibrated report as a tab-separated table of
// requested coverage, achieved coverage (%) and selective error (%).
func WriteTable(w io.Writer, title string, report selective.CoverageReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\tTest\tCoverage\tError\n", title)
	for _, p := range report {
		fmt.Fprintf(&b, "%.0f,\t%.2f,\t\t%.3f\n", p.Target, p.Coverage*100, p.ErrorPercent())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAccuracyLine writes a quick report on one line as
// "<label>: accuracy of coverage <target>: <accuracy %>, ...".
func WriteAccuracyLine(w io.Writer, label string, report selective.CoverageReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: accuracy of coverage ", label)
	for _, p := range report {
		fmt.Fprintf(&b, "%.0f: %.3f, ", p.Target, p.Accuracy*100)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
