package synthesis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-operators/src/analysis/core"
	"stream-operators/src/helpers"
	"stream-operators/src/models"
)

func TestCompileMap(t *testing.T) {
	fn, err := Compile(models.KindMap, "map", "func convert(value, params) = value * params.exchange_rate")
	require.NoError(t, err)
	assert.Equal(t, "convert", fn.Name)

	out, err := fn.Call(10.0, map[string]interface{}{"exchange_rate": 1.2})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, out, 1e-9)
}

func TestCompileFilter(t *testing.T) {
	fn, err := Compile(models.KindFilter, "filter", `func below(value, params) = value < params.threshold ? "true" : "false"`)
	require.NoError(t, err)

	params := map[string]interface{}{"threshold": 35.0}
	out, err := fn.Call(30.0, params)
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	out, err = fn.Call(40.0, params)
	require.NoError(t, err)
	assert.Equal(t, "false", out)
}

func TestCompileRejects(t *testing.T) {
	tests := []struct {
		name   string
		kind   models.OperatorKind
		source string
	}{
		{"arity", models.KindAccumulate, "func f(value, params) = value"},
		{"unknown identifier", models.KindMap, "func f(value, params) = value * rate"},
		{"syntax", models.KindMap, "func f(value, params) = value * (2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.kind, "", tt.source)
			require.Error(t, err)
			assert.True(t, helpers.IsSynthesisError(err))
		})
	}
}

func TestCallArgumentCount(t *testing.T) {
	fn, err := Compile(models.KindMap, "", "func f(value, params) = value")
	require.NoError(t, err)
	_, err = fn.Call(1.0)
	assert.Error(t, err)
}

func TestAccumulateRunningMean(t *testing.T) {
	fn, err := Compile(models.KindAccumulate, "", "func avg(acc, value, params) = running_mean(acc, value)")
	require.NoError(t, err)

	var acc interface{} = map[string]interface{}{}
	var summary interface{}
	for _, x := range []float64{10, 20, 30} {
		acc, summary, err = fn.CallAccumulate(acc, x, nil)
		require.NoError(t, err)
	}
	assert.InDelta(t, 20.0, summary, 1e-9)
	assert.Equal(t, 3, acc.(map[string]interface{})["count"])
}

func TestAccumulateVariance(t *testing.T) {
	fn, err := Compile(models.KindAccumulate, "", "func v(acc, value, params) = variance(acc, value)")
	require.NoError(t, err)

	var acc interface{} = map[string]interface{}{}
	var got []interface{}
	for _, x := range []float64{1, 2, 3, 4} {
		var s interface{}
		acc, s, err = fn.CallAccumulate(acc, x, nil)
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Nil(t, got[0])
	assert.InDelta(t, 0.5, got[1], 1e-9)
	assert.InDelta(t, 1.0, got[2], 1e-9)
	assert.InDelta(t, 5.0/3.0, got[3], 1e-9)
}

func TestAccumulateSMA(t *testing.T) {
	fn, err := Compile(models.KindAccumulate, "", "func w(acc, value, params) = sma(acc, value, params.window_size)")
	require.NoError(t, err)

	params := map[string]interface{}{"window_size": 3.0}
	var acc interface{} = map[string]interface{}{}
	var got []interface{}
	for _, x := range []float64{10, 20, 30, 40} {
		var s interface{}
		acc, s, err = fn.CallAccumulate(acc, x, params)
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Equal(t, []interface{}{10.0, 15.0, 20.0, 30.0}, got)
}

func TestAccumulateHandWritten(t *testing.T) {
	fn, err := Compile(models.KindAccumulate, "", `func last(acc, value, params) = [{"last": value}, value * 2]`)
	require.NoError(t, err)

	acc, summary, err := fn.CallAccumulate(map[string]interface{}{}, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"last": 4.0}, acc)
	assert.InDelta(t, 8.0, summary, 1e-9)
}

func TestAccumulateShapeError(t *testing.T) {
	fn, err := Compile(models.KindAccumulate, "", "func bad(acc, value, params) = value")
	require.NoError(t, err)
	_, _, err = fn.CallAccumulate(map[string]interface{}{}, 1, nil)
	assert.ErrorIs(t, err, ErrAccumulateShape)
}

func TestSMARejectsUnusableWindows(t *testing.T) {
	for _, window := range []interface{}{1e12, 2.5, -1.0, float64(math.MaxInt32) + 1} {
		_, err := smaBuiltin(nil, 1.0, window)
		assert.ErrorIs(t, err, core.ErrWindowSize, "window %v", window)
	}

	out, err := smaBuiltin(map[string]interface{}{}, 4.0, 1e6)
	require.NoError(t, err)
	pair := out.([]interface{})
	assert.Equal(t, 4.0, pair[1])
}

func TestBuiltinsRejectNonNumeric(t *testing.T) {
	_, err := runningMeanBuiltin(nil, "abc")
	require.Error(t, err)
	assert.True(t, helpers.IsNumericTypeError(err))

	_, err = varianceBuiltin(map[string]interface{}{}, true)
	assert.True(t, helpers.IsNumericTypeError(err))

	_, err = smaBuiltin(nil, 1.0, 0.0)
	assert.ErrorIs(t, err, core.ErrWindowSize)

	_, err = stddevBuiltin(nil)
	assert.Error(t, err)
}
