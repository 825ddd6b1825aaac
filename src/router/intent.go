package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"stream-operators/src/helpers"
	"stream-operators/src/models"
	"stream-operators/src/operators"
)

// Keys that describe the call itself rather than the operation.
var reservedKeys = map[string]bool{
	"symbol":             true,
	"streaming_operator": true,
	"operation_config":   true,
}

// -----------------------------------------------------------------------------

// NormalizeIntent reconciles the parameter shapes the reasoning service
// produces into one routed command. Parameters may be nested under
// "parameters" or sit at the top level, and operation_config may live in
// either place.
func NormalizeIntent(obj map[string]interface{}) (models.MRoutedCommand, error) {
	raw, ok := obj["function"]
	if !ok {
		return models.MRoutedCommand{}, helpers.NewInvalidCommandIntentError("response has no \"function\" key", nil)
	}
	name, ok := raw.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return models.MRoutedCommand{}, helpers.NewInvalidCommandIntentError(fmt.Sprintf("function must be a non-empty string, got %v", raw), nil)
	}
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")

	intent := models.MCommandIntent{FunctionName: name}
	if p, ok := obj["parameters"]; ok && p != nil {
		pm, ok := p.(map[string]interface{})
		if !ok {
			return models.MRoutedCommand{}, helpers.NewInvalidCommandIntentError(fmt.Sprintf("parameters must be an object, got %T", p), nil)
		}
		intent.Parameters = pm
	}

	opConfig, err := findOperationConfig(intent.Parameters, obj)
	if err != nil {
		return models.MRoutedCommand{}, err
	}

	cmd := models.MRoutedCommand{
		FunctionName:      name,
		Symbol:            lookupString("symbol", intent.Parameters, obj),
		StreamingOperator: lookupString("streaming_operator", intent.Parameters, obj, opConfig),
	}

	isRead := name == operators.FunctionReadAdhoc || name == operators.FunctionReadStreaming
	if !isRead {
		if _, _, err := operators.ParseFunctionName(name); err != nil {
			return models.MRoutedCommand{}, helpers.NewInvalidCommandIntentError("unsupported function", err)
		}
		if opConfig == nil {
			opConfig = leftoverParameters(intent.Parameters)
		}
		delete(opConfig, "streaming_operator")
		cmd.OperationConfig = opConfig
	}

	if cmd.Symbol == "" {
		return models.MRoutedCommand{}, helpers.NewInvalidCommandIntentError(fmt.Sprintf("no symbol for %s", name), nil)
	}
	return cmd, nil
}

// -----------------------------------------------------------------------------

func findOperationConfig(params, top map[string]interface{}) (map[string]interface{}, error) {
	var raw interface{}
	if v, ok := params["operation_config"]; ok && v != nil {
		raw = v
	} else if v, ok := top["operation_config"]; ok && v != nil {
		raw = v
	}

	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return copyMap(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]interface{}{}, nil
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, helpers.NewInvalidCommandIntentError("operation_config is not a JSON object", err)
		}
		return m, nil
	default:
		return nil, helpers.NewInvalidCommandIntentError(fmt.Sprintf("operation_config must be an object, got %T", raw), nil)
	}
}

func lookupString(key string, sources ...map[string]interface{}) string {
	for _, src := range sources {
		if s, ok := src[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// leftoverParameters keeps operation parameters given flat inside "parameters".
func leftoverParameters(params map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range params {
		if !reservedKeys[k] {
			out[k] = v
		}
	}
	return out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
