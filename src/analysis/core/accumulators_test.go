package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-operators/src/helpers"
)

func TestRunningMean(t *testing.T) {
	state, mean := RunningMean(MeanState{}, 42)
	assert.Equal(t, MeanState{Count: 1, Mean: 42}, state)
	assert.Equal(t, 42.0, mean)

	for _, x := range []float64{44, 46} {
		state, mean = RunningMean(state, x)
	}
	assert.Equal(t, 3, state.Count)
	assert.InDelta(t, 44.0, mean, 1e-12)
}

func TestRunningMeanDoesNotMutateInput(t *testing.T) {
	prev := MeanState{Count: 2, Mean: 10}
	_, _ = RunningMean(prev, 20)
	assert.Equal(t, MeanState{Count: 2, Mean: 10}, prev)
}

func TestSimpleMovingAverage(t *testing.T) {
	var state WindowState
	var got []float64
	for _, x := range []float64{10, 20, 30, 40} {
		var avg float64
		var err error
		state, avg, err = SimpleMovingAverage(state, x, 3)
		require.NoError(t, err)
		got = append(got, avg)
	}
	assert.Equal(t, []float64{10, 15, 20, 30}, got)
	assert.Equal(t, []float64{20, 30, 40}, state.Values)
}

func TestSimpleMovingAverageKeepsPreviousWindow(t *testing.T) {
	prev := WindowState{Values: []float64{1, 2, 3}}
	next, avg, err := SimpleMovingAverage(prev, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, prev.Values)
	assert.Equal(t, []float64{2, 3, 4}, next.Values)
	assert.InDelta(t, 3.0, avg, 1e-12)
}

func TestSimpleMovingAverageRejectsBadWindow(t *testing.T) {
	_, _, err := SimpleMovingAverage(WindowState{}, 1, 0)
	assert.ErrorIs(t, err, ErrWindowSize)
}

func TestSimpleMovingAverageHugeWindowAllocatesOnlyWhatItHolds(t *testing.T) {
	state := WindowState{}
	var avg float64
	var err error
	for _, x := range []float64{10, 20, 30} {
		state, avg, err = SimpleMovingAverage(state, x, 1<<40)
		require.NoError(t, err)
	}
	assert.Equal(t, []float64{10, 20, 30}, state.Values)
	assert.LessOrEqual(t, cap(state.Values), 3)
	assert.InDelta(t, 20.0, avg, 1e-12)
}

func TestSimpleMovingAverageWindowOfOne(t *testing.T) {
	next, avg, err := SimpleMovingAverage(WindowState{Values: []float64{1, 2}}, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, next.Values)
	assert.Equal(t, 7.0, avg)
}

func TestVarianceSequence(t *testing.T) {
	var state WelfordState
	var results []Result
	for _, x := range []float64{1, 2, 3, 4} {
		var r Result
		state, r = Variance(state, x)
		results = append(results, r)
	}

	assert.False(t, results[0].Defined)
	assert.Nil(t, results[0].Interface())
	assert.InDelta(t, 0.5, results[1].Value, 1e-9)
	assert.InDelta(t, 1.0, results[2].Value, 1e-9)
	assert.InDelta(t, 5.0/3.0, results[3].Value, 1e-9)
}

func TestWelfordMatchesClosedForm(t *testing.T) {
	data := []float64{101.5, 99.25, 100.75, 102.0, 98.5, 100.0, 103.25, 97.75}

	var state WelfordState
	var last Result
	for _, x := range data {
		state, last = Variance(state, x)
	}

	expected, ok := CalculateSampleVariance(data)
	require.True(t, ok)
	assert.InDelta(t, expected, last.Value, 1e-9)
	assert.InDelta(t, CalculateMean(data), state.Mean, 1e-9)
}

func TestStdDev(t *testing.T) {
	var state WelfordState
	var r Result
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		state, r = StdDev(state, x)
	}
	v, _ := CalculateSampleVariance([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, math.Sqrt(v), r.Value, 1e-9)

	_, first := StdDev(WelfordState{}, 3)
	assert.False(t, first.Defined)
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		want    float64
		wantErr bool
	}{
		{"float64", 1.5, 1.5, false},
		{"int", 3, 3, false},
		{"int64", int64(-7), -7, false},
		{"int8", int8(-3), -3, false},
		{"int16", int16(300), 300, false},
		{"uint8", uint8(200), 200, false},
		{"uint16", uint16(6000), 6000, false},
		{"json number", json.Number("2.25"), 2.25, false},
		{"string", "12", 0, true},
		{"bool", true, 0, true},
		{"nil", nil, 0, true},
		{"nan", math.NaN(), 0, true},
		{"inf", math.Inf(1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToFloat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, helpers.IsNumericTypeError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateMeanStd(t *testing.T) {
	mean, std := CalculateMeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, std, 1e-12)

	_, ok := CalculateSampleVariance([]float64{1})
	assert.False(t, ok)
}
