package synthesis

import (
	"encoding/json"
	"fmt"
	"math"

	"stream-operators/src/analysis/core"

	"github.com/expr-lang/expr"
)

// maxWindowSize bounds sma windows coming from generated code and parameters.
const maxWindowSize = math.MaxInt32

// Accumulator helpers exposed to generated expressions. Each takes the
// previous state (an empty map on the first event) and returns [state, result].
var builtinNames = []string{"running_mean", "ema", "sma", "variance", "stddev"}

func isBuiltin(name string) bool {
	for _, b := range builtinNames {
		if b == name {
			return true
		}
	}
	return false
}

// builtinOptions returns the expr options registering every helper.
func builtinOptions() []expr.Option {
	return []expr.Option{
		expr.Function("running_mean", runningMeanBuiltin),
		expr.Function("ema", runningMeanBuiltin),
		expr.Function("sma", smaBuiltin),
		expr.Function("variance", varianceBuiltin),
		expr.Function("stddev", stddevBuiltin),
	}
}

// -----------------------------------------------------------------------------

// decodeState converts an arbitrary decoded value into a typed accumulator.
// nil and empty maps yield the zero state.
func decodeState(in interface{}, out interface{}) error {
	if in == nil {
		return nil
	}
	if m, ok := in.(map[string]interface{}); ok && len(m) == 0 {
		return nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("unsupported accumulator state %T: %w", in, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unsupported accumulator state %s: %w", data, err)
	}
	return nil
}

func checkArgs(name string, params []interface{}, n int) error {
	if len(params) != n {
		return fmt.Errorf("%s expects %d arguments, got %d", name, n, len(params))
	}
	return nil
}

// -----------------------------------------------------------------------------

func runningMeanBuiltin(params ...interface{}) (interface{}, error) {
	if err := checkArgs("running_mean", params, 2); err != nil {
		return nil, err
	}
	var state core.MeanState
	if err := decodeState(params[0], &state); err != nil {
		return nil, err
	}
	x, err := core.ToFloat(params[1])
	if err != nil {
		return nil, err
	}
	next, mean := core.RunningMean(state, x)
	return []interface{}{
		map[string]interface{}{"count": next.Count, "mean": next.Mean},
		mean,
	}, nil
}

func smaBuiltin(params ...interface{}) (interface{}, error) {
	if err := checkArgs("sma", params, 3); err != nil {
		return nil, err
	}
	var state core.WindowState
	if err := decodeState(params[0], &state); err != nil {
		return nil, err
	}
	x, err := core.ToFloat(params[1])
	if err != nil {
		return nil, err
	}
	window, err := core.ToFloat(params[2])
	if err != nil {
		return nil, err
	}
	if window < 1 || window > maxWindowSize || window != math.Trunc(window) {
		return nil, fmt.Errorf("sma: %w, got %v", core.ErrWindowSize, params[2])
	}
	next, avg, err := core.SimpleMovingAverage(state, x, int(window))
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(next.Values))
	for i, v := range next.Values {
		values[i] = v
	}
	return []interface{}{map[string]interface{}{"values": values}, avg}, nil
}

func welfordBuiltin(name string, step func(core.WelfordState, float64) (core.WelfordState, core.Result), params []interface{}) (interface{}, error) {
	if err := checkArgs(name, params, 2); err != nil {
		return nil, err
	}
	var state core.WelfordState
	if err := decodeState(params[0], &state); err != nil {
		return nil, err
	}
	x, err := core.ToFloat(params[1])
	if err != nil {
		return nil, err
	}
	next, res := step(state, x)
	return []interface{}{
		map[string]interface{}{"n": next.N, "mean": next.Mean, "sum_sq_diff": next.SumSqDiff},
		res.Interface(),
	}, nil
}

func varianceBuiltin(params ...interface{}) (interface{}, error) {
	return welfordBuiltin("variance", core.Variance, params)
}

func stddevBuiltin(params ...interface{}) (interface{}, error) {
	return welfordBuiltin("stddev", core.StdDev, params)
}
