package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/banshee-data/selective.report/internal/selective"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_WriteResult(t *testing.T) {
	res := selective.PassResult{
		Phase: "test",
		Epoch: 7,
		Reports: map[string]selective.CoverageReport{
			selective.SourceSoftmaxResponse: sampleReport[:1],
			selective.SourceAbstention:      sampleReport,
		},
	}

	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.WriteResult("cifar10", res))
	require.NoError(t, w.WriteResult("cifar10", res))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+2*3, "header is written once")

	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"cifar10", "test", "7", "abstention", "100", "1.000000", "0.750000", "25.000", "0.700000", "4"}, rows[1])
	assert.Equal(t, "abstention", rows[2][3])
	assert.Equal(t, "softmax_response", rows[3][3])
}
