package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"stream-operators/src/models"
)

const languageRules = `The function must be written in this expression language, as a single line:
    func <name>(<parameters>) = <expression>
The expression supports numbers, strings, booleans, arithmetic (+ - * / % **),
comparisons (== != < <= > >=), and/or/not, the ternary operator cond ? a : b,
array literals [a, b], map literals {"key": value}, member access params.key or params["key"],
and the builtins abs, min, max, round, floor, ceil, len, float, int, string, lower, upper.
There are no statements, assignments, loops, imports or I/O.`

const accumulatorRules = `The accumulator acc is an empty map {} on the first value; len(acc) == 0 tests for that.
These helpers each take the previous accumulator and return [new_acc, result]:
    running_mean(acc, value)        cumulative mean (alias ema)
    sma(acc, value, window_size)    simple moving average over the last window_size values
    variance(acc, value)            Welford sample variance, nil until two values were seen
    stddev(acc, value)              Welford sample standard deviation, nil until two values were seen`

// -----------------------------------------------------------------------------

func encodeParams(params map[string]interface{}) string {
	if params == nil {
		params = map[string]interface{}{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// BuildPrompt returns the synthesis prompt for spec.
func BuildPrompt(spec *models.MOperatorSpec) string {
	var b strings.Builder
	b.WriteString("Return a JSON result, and only a JSON result that has a single key: `result`.\n")
	b.WriteString("In this `result` key, store a string that contains one function declaration.\n\n")
	b.WriteString(languageRules)
	b.WriteString("\n\n")

	switch spec.Kind {
	case models.KindMap:
		fmt.Fprintf(&b, "The function must have the signature `func <name>(value, params)` where value is the new price (a number)\n")
		fmt.Fprintf(&b, "and params holds the operation parameters. The implementation must be as follows: %s.\n",
			spec.Config.DescriptionOr("Perform a mapping operation"))
		b.WriteString("The function returns the mapped value.\n")
	case models.KindFilter:
		fmt.Fprintf(&b, "The function must have the signature `func <name>(value, params)` where value is the new price (a number)\n")
		fmt.Fprintf(&b, "and params holds the operation parameters. The implementation must be as follows: %s.\n",
			spec.Config.DescriptionOr("Perform a filter operation"))
		b.WriteString("Use params to determine the filtering criteria. The function should return the string 'true'\n")
		b.WriteString("if value meets the criteria, otherwise 'false'.\n")
	case models.KindAccumulate:
		b.WriteString(accumulatorRules)
		b.WriteString("\n\n")
		b.WriteString("The function must have the signature `func <name>(acc, value, params)`.\n")
		fmt.Fprintf(&b, "Calculate the %s on value given the accumulator state acc that your function defines in order\n", spec.StreamingOperator)
		fmt.Fprintf(&b, "to continue applying the %s as each new value arrives. The function must return the array\n", spec.StreamingOperator)
		b.WriteString("[acc, result]: the updated accumulator followed by the result of the calculation.\n")
		b.WriteString("Never modify the incoming acc; build a new one.\n")
	}

	fmt.Fprintf(&b, "The parameters for this operation are: %s.\n", encodeParams(spec.Config.Params()))
	b.WriteString("Ensure the function is returned as a single line string.\n")
	return b.String()
}

// Signature describes what a synthesized function for spec computes.
func Signature(spec *models.MOperatorSpec) string {
	switch spec.Kind {
	case models.KindAccumulate:
		return fmt.Sprintf("accumulate %s: (acc, value, params) -> [acc, result]", spec.StreamingOperator)
	case models.KindFilter:
		return fmt.Sprintf("filter %s: (value, params) -> 'true'|'false'", spec.Config.DescriptionOr("custom filter"))
	default:
		return fmt.Sprintf("map %s: (value, params) -> value", spec.Config.DescriptionOr("custom mapping"))
	}
}
