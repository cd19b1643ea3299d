package selective

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracyConstraint_WorkedExample(t *testing.T) {
	// Sorted correctness [T,T,F,T]; prefix accuracies 1, 1, 0.667, 0.75.
	m, err := NewAccuracyConstraint(1)
	require.NoError(t, err)
	require.NoError(t, m.Update([]float64{0.9, 0.8, 0.7, 0.3}, []bool{true, true, false, true}))

	got, err := m.Compute()
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)
}

func TestAccuracyConstraint_Compute(t *testing.T) {
	testCases := []struct {
		name    string
		risk    float64
		conf    []float64
		correct []bool
		want    float64
	}{
		{
			name:    "risk_equal_to_global_accuracy",
			risk:    0.75,
			conf:    []float64{0.9, 0.8, 0.7, 0.3},
			correct: []bool{true, true, false, true},
			want:    1.0,
		},
		{
			name:    "risk_below_global_accuracy",
			risk:    0.5,
			conf:    []float64{0.1, 0.4, 0.3, 0.2},
			correct: []bool{false, true, true, true},
			want:    1.0,
		},
		{
			name:    "no_prefix_meets_risk",
			risk:    1.0,
			conf:    []float64{0.9, 0.5},
			correct: []bool{false, true},
			want:    0,
		},
		{
			// Sorted [T,F,T,T,T]: 1, 0.5, 0.667, 0.75, 0.8.
			name:    "largest_prefix_wins_after_dip",
			risk:    0.8,
			conf:    []float64{0.95, 0.9, 0.8, 0.7, 0.6},
			correct: []bool{true, false, true, true, true},
			want:    1.0,
		},
		{
			name:    "input_order_irrelevant",
			risk:    1.0,
			conf:    []float64{0.3, 0.7, 0.9, 0.8},
			correct: []bool{true, false, true, true},
			want:    0.5,
		},
		{
			name:    "ties_keep_input_order",
			risk:    1.0,
			conf:    []float64{0.5, 0.5},
			correct: []bool{false, true},
			want:    0,
		},
		{
			name:    "all_correct",
			risk:    0.99,
			conf:    []float64{0.2, 0.1, 0.3},
			correct: []bool{true, true, true},
			want:    1.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewAccuracyConstraint(tc.risk)
			require.NoError(t, err)
			require.NoError(t, m.Update(tc.conf, tc.correct))

			got, err := m.Compute()
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestAccuracyConstraint_IncrementalUpdates(t *testing.T) {
	whole, err := NewAccuracyConstraint(0.9)
	require.NoError(t, err)
	parts, err := NewAccuracyConstraint(0.9)
	require.NoError(t, err)

	conf := []float64{0.99, 0.97, 0.95, 0.9, 0.85, 0.8, 0.6, 0.55, 0.4, 0.2}
	correct := []bool{true, true, true, true, true, true, true, true, false, false}

	require.NoError(t, whole.Update(conf, correct))
	require.NoError(t, parts.Update(conf[:3], correct[:3]))
	require.NoError(t, parts.Update(conf[3:7], correct[3:7]))
	require.NoError(t, parts.Update(nil, nil))
	require.NoError(t, parts.Update(conf[7:], correct[7:]))
	assert.Equal(t, 10, parts.Len())

	a, err := whole.Compute()
	require.NoError(t, err)
	b, err := parts.Compute()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	// 8 correct then 2 wrong: 9/9 fails (8/9 < 0.9), 8/8 holds.
	assert.InDelta(t, 0.8, a, 1e-12)
}

func TestAccuracyConstraint_EmptyCompute(t *testing.T) {
	m, err := NewAccuracyConstraint(DefaultRisk)
	require.NoError(t, err)

	_, err = m.Compute()
	assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
}

func TestAccuracyConstraint_MismatchedUpdate(t *testing.T) {
	m, err := NewAccuracyConstraint(DefaultRisk)
	require.NoError(t, err)

	err = m.Update([]float64{0.1, 0.2}, []bool{true})
	assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
	assert.Equal(t, 0, m.Len(), "rejected update must not grow buffers")
}

func TestAccuracyConstraint_Reset(t *testing.T) {
	m, err := NewAccuracyConstraint(1)
	require.NoError(t, err)
	require.NoError(t, m.Update([]float64{0.9}, []bool{false}))
	m.Reset()
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Update([]float64{0.9}, []bool{true}))
	got, err := m.Compute()
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestNewAccuracyConstraint_InvalidRisk(t *testing.T) {
	for _, risk := range []float64{0, -0.1, 1.0001, math.NaN()} {
		_, err := NewAccuracyConstraint(risk)
		assert.True(t, errors.Is(err, ErrConfiguration), "risk %v: got %v", risk, err)
	}
	m, err := NewAccuracyConstraint(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Risk())
}
