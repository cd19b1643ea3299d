// Package report reads per-example score files and writes coverage reports
// as text tables and CSV.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/selective.report/internal/selective"
)

// ErrMalformedRecords is returned for score files that cannot be parsed.
var ErrMalformedRecords = errors.New("malformed records")

// Record is one example read from a score file.
type Record struct {
	Reservation     float64
	SoftmaxResponse float64
	Correct         bool
	// Label and Prediction are -1 when the file does not carry them.
	Label      int
	Prediction int
	// NegEntropy is nil when the file has no neg_entropy column.
	NegEntropy *float64
}

// Derived converts the record to the scores an evaluation pass consumes.
// Without a neg_entropy column the entropy ordering falls back to the
// reservation ordering.
func (r Record) Derived() selective.Derived {
	d := selective.Derived{
		Prediction:      r.Prediction,
		Correct:         r.Correct,
		Confidence:      1 - r.Reservation,
		Reservation:     r.Reservation,
		NegEntropy:      -r.Reservation,
		SoftmaxResponse: r.SoftmaxResponse,
	}
	if r.NegEntropy != nil {
		d.NegEntropy = *r.NegEntropy
	}
	return d
}

// ReadRecords parses a score file. The header must name reservation and
// softmax_response, plus either correct or both label and prediction.
// Columns may appear in any order; unknown columns are ignored.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty score file: %w", ErrMalformedRecords)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"reservation", "softmax_response"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", required, ErrMalformedRecords)
		}
	}
	_, hasCorrect := cols["correct"]
	_, hasLabel := cols["label"]
	_, hasPred := cols["prediction"]
	if !hasCorrect && !(hasLabel && hasPred) {
		return nil, fmt.Errorf("need a correct column or both label and prediction: %w", ErrMalformedRecords)
	}
	_, hasEntropy := cols["neg_entropy"]

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ErrMalformedRecords)
		}

		p := fieldParser{row: row, cols: cols, line: line}
		rec := Record{
			Reservation:     p.float("reservation"),
			SoftmaxResponse: p.float("softmax_response"),
			Label:           -1,
			Prediction:      -1,
		}
		if hasLabel {
			rec.Label = p.int("label")
		}
		if hasPred {
			rec.Prediction = p.int("prediction")
		}
		if hasCorrect {
			rec.Correct = p.bool("correct")
		} else {
			rec.Correct = rec.Label == rec.Prediction
		}
		if hasEntropy {
			v := p.float("neg_entropy")
			rec.NegEntropy = &v
		}
		if p.err != nil {
			return nil, p.err
		}
		records = append(records, rec)
	}
	return records, nil
}

// fieldParser keeps the first conversion error of a row.
type fieldParser struct {
	row  []string
	cols map[string]int
	line int
	err  error
}

func (p *fieldParser) field(name string) string {
	return strings.TrimSpace(p.row[p.cols[name]])
}

func (p *fieldParser) fail(name string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("line %d, %s: %v: %w", p.line, name, err, ErrMalformedRecords)
	}
}

func (p *fieldParser) float(name string) float64 {
	v, err := strconv.ParseFloat(p.field(name), 64)
	if err != nil {
		p.fail(name, err)
	}
	return v
}

func (p *fieldParser) int(name string) int {
	v, err := strconv.Atoi(p.field(name))
	if err != nil {
		p.fail(name, err)
	}
	return v
}

func (p *fieldParser) bool(name string) bool {
	v, err := strconv.ParseBool(p.field(name))
	if err != nil {
		p.fail(name, err)
	}
	return v
}
