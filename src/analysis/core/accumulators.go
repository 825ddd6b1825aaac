package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"stream-operators/src/helpers"
)

// Accumulator updates are pure: every function takes the previous state by value
// and returns a fresh one. The caller owns the returned state.

// -----------------------------------------------------------------------------

// Result is the output of an accumulator step. Defined is false while the
// statistic has no value yet (e.g. variance with a single observation).
type Result struct {
	Value   float64
	Defined bool
}

// Interface returns the value, or nil while undefined.
func (r Result) Interface() interface{} {
	if !r.Defined {
		return nil
	}
	return r.Value
}

// -----------------------------------------------------------------------------
// Running mean
// -----------------------------------------------------------------------------

type MeanState struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// RunningMean folds x into the cumulative mean. An empty state becomes (1, x).
func RunningMean(acc MeanState, x float64) (MeanState, float64) {
	if acc.Count == 0 {
		return MeanState{Count: 1, Mean: x}, x
	}
	next := MeanState{Count: acc.Count + 1, Mean: acc.Mean}
	next.Mean += (x - next.Mean) / float64(next.Count)
	return next, next.Mean
}

// -----------------------------------------------------------------------------
// Simple moving average
// -----------------------------------------------------------------------------

// ErrWindowSize reports a moving-average window that cannot be used.
var ErrWindowSize = errors.New("invalid window size")

type WindowState struct {
	Values []float64 `json:"values"`
}

// SimpleMovingAverage appends x, keeps the newest windowSize values and returns their mean.
func SimpleMovingAverage(acc WindowState, x float64, windowSize int) (WindowState, float64, error) {
	if windowSize <= 0 {
		return acc, 0, fmt.Errorf("%w: must be positive, got %d", ErrWindowSize, windowSize)
	}

	kept := acc.Values
	if len(kept) >= windowSize {
		kept = kept[len(kept)-windowSize+1:]
	}
	values := make([]float64, 0, len(kept)+1)
	values = append(values, kept...)
	values = append(values, x)

	return WindowState{Values: values}, CalculateMean(values), nil
}

// -----------------------------------------------------------------------------
// Welford variance / standard deviation
// -----------------------------------------------------------------------------

type WelfordState struct {
	N         int     `json:"n"`
	Mean      float64 `json:"mean"`
	SumSqDiff float64 `json:"sum_sq_diff"`
}

func welfordStep(acc WelfordState, x float64) WelfordState {
	next := acc
	next.N++
	delta := x - next.Mean
	next.Mean += delta / float64(next.N)
	delta2 := x - next.Mean
	next.SumSqDiff += delta * delta2
	return next
}

// SampleVariance returns the current sample variance of the state.
func (s WelfordState) SampleVariance() Result {
	if s.N < 2 {
		return Result{}
	}
	return Result{Value: s.SumSqDiff / float64(s.N-1), Defined: true}
}

// Variance folds x into the state using Welford's online algorithm.
func Variance(acc WelfordState, x float64) (WelfordState, Result) {
	next := welfordStep(acc, x)
	return next, next.SampleVariance()
}

// StdDev is Variance followed by a square root.
func StdDev(acc WelfordState, x float64) (WelfordState, Result) {
	next, v := Variance(acc, x)
	if !v.Defined {
		return next, v
	}
	return next, Result{Value: math.Sqrt(v.Value), Defined: true}
}

// -----------------------------------------------------------------------------
// Input validation
// -----------------------------------------------------------------------------

// ToFloat converts a decoded value to float64. Strings, booleans, nil, NaN and
// infinities are rejected with a NumericTypeError rather than coerced.
func ToFloat(v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, helpers.NewNumericTypeError(v)
		}
		f = parsed
	default:
		return 0, helpers.NewNumericTypeError(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, helpers.NewNumericTypeError(v)
	}
	return f, nil
}
