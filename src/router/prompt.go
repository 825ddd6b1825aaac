package router

import (
	"fmt"
	"strings"
)

const possibleFunctions = `Possible functions:
- read_adhoc(symbol: str)
- read_streaming(symbol: str)
- map_direct(symbol: str, operation_config: dict)
- map_generate(symbol: str, operation_config: dict)
- filter_direct(symbol: str, operation_config: dict)
- filter_generate(symbol: str, operation_config: dict)
- accumulate_direct(symbol: str, streaming_operator: str, operation_config: dict)
- accumulate_generate(symbol: str, streaming_operator: str, operation_config: dict)`

const exampleScenarios = `Examples:
{"function": "read_adhoc", "symbol": "AAAA"}
{"function": "read_streaming", "symbol": "AAAA"}
{"function": "map_direct", "symbol": "AAAA", "operation_config": {"description": "apply exchange rate", "parameters": {"exchange_rate": 35}}}
{"function": "map_generate", "symbol": "AAAA", "operation_config": {"description": "apply exchange rate", "parameters": {"exchange_rate": 35}}}
{"function": "filter_direct", "symbol": "AAAA", "operation_config": {"description": "alert me if stock price for AAAA goes below 35", "parameters": {"threshold": 35}}}
{"function": "filter_generate", "symbol": "AAAA", "operation_config": {"description": "alert me if stock price for AAAA goes below 35", "parameters": {"threshold": 35}}}
{"function": "accumulate_direct", "parameters": {"symbol": "AAAA", "streaming_operator": "average", "operation_config": {"window_size": 5}}}
{"function": "accumulate_generate", "parameters": {"symbol": "AAAA", "streaming_operator": "average", "operation_config": {"window_size": 5}}}`

const filteringContext = `Pay attention to signal terms for filtering:
- filter, alert, find, look, match, screen, select, pick, choose, exclude, include,
  only, except, without, with, containing, not, none, all, any, specific, particular,
  certain, exactly, matching, like, unlike, different, same, similar,
  dissimilar, look for, separate, but not, reject, omit, show, give, flag.
Keep in mind the context and intent behind the query can also influence the
interpretation of these keywords.`

// BuildPrompt asks the reasoning service to turn command into a JSON intent.
func BuildPrompt(command string) string {
	var b strings.Builder
	b.WriteString("You are an intelligent assistant that converts natural language commands\n")
	b.WriteString("into structured code for various functions.\n")
	b.WriteString("You must only return valid JSON. Only valid JSON.\n")
	fmt.Fprintf(&b, "Given the command: '%s', determine which function to execute and\n", strings.TrimSpace(command))
	b.WriteString("provide the necessary parameters in JSON format and identify the name of\n")
	b.WriteString("the function in the JSON response using the `function` field.\n")
	b.WriteString("When choosing functions with the suffix \"_direct\" and \"_generate\", choose\n")
	b.WriteString("the latter whenever the request is asking for code (function, operator, etc).\n\n")
	b.WriteString(possibleFunctions)
	b.WriteString("\n\n")
	b.WriteString(exampleScenarios)
	b.WriteString("\n\n")
	b.WriteString(filteringContext)
	b.WriteString("\n\n")
	b.WriteString("Ensure you have included the key \"function\" in the JSON object.\n")
	b.WriteString("Make sure the JSON you return is valid and parseable.\n")
	return b.String()
}
