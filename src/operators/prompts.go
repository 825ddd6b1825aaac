package operators

import (
	"encoding/json"
	"fmt"
	"strconv"
)

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// -----------------------------------------------------------------------------

func mapDirectPrompt(description string, price float64, params map[string]interface{}) string {
	return fmt.Sprintf(`%s
The current stock price is %s.
The parameters for this operation are: %s.
Please perform the operation and return a JSON object with `+"`result`"+` as
the only key and storing the result of the operation.
All other keys will be ignored. Please only provide JSON.
`, description, formatPrice(price), toJSON(params))
}

func filterDirectPrompt(description string, price float64, params map[string]interface{}) string {
	return fmt.Sprintf(`%s
The current stock price is %s.
The parameters for this operation are: %s.
Perform the operation and return a JSON object with `+"`result`"+` as the only
top-level key. Its value is the string 'true' or 'false' based on the result of filtering.
All other keys will be ignored. Please only provide JSON.
`, description, formatPrice(price), toJSON(params))
}

func accumulateDirectPrompt(operator string, price float64, acc interface{}, params map[string]interface{}) string {
	return fmt.Sprintf(`Perform the %[1]s accumulation operation.
The current stock price is %[2]s.
The current accumulator state is %[3]s.
The parameters for this operation are: %[4]s.
If the accumulator is empty, initialize it appropriately for the
%[1]s operation. Please perform the operation and return
a JSON object with `+"`result`"+` as the only key. Under `+"`result`"+` provide
`+"`summary`"+` for the result of the operation and `+"`acc`"+` for the updated
accumulator. All other keys will be ignored. Please only provide JSON.
`, operator, formatPrice(price), toJSON(acc), toJSON(params))
}
