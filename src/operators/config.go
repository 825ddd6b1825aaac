package operators

import (
	"encoding/json"
	"fmt"
	"strings"

	"stream-operators/src/helpers"
	"stream-operators/src/models"

	"github.com/google/uuid"
)

// Command names that are not operators.
const (
	FunctionReadAdhoc     = "read_adhoc"
	FunctionReadStreaming = "read_streaming"
)

// -----------------------------------------------------------------------------

// ParseOperationConfig decodes the operation_config argument. An empty string is `{}`.
func ParseOperationConfig(raw string) (models.MOperationConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return models.MOperationConfig{}, helpers.NewConfigParseError("Invalid operation_config. Please provide a valid JSON object", err)
	}
	return ConfigFromMap(m)
}

// -----------------------------------------------------------------------------

// ConfigFromMap builds an operation config from an already decoded object.
func ConfigFromMap(m map[string]interface{}) (models.MOperationConfig, error) {
	if m == nil {
		m = map[string]interface{}{}
	}
	cfg := models.MOperationConfig{Raw: m}

	if d, ok := m["description"]; ok && d != nil {
		s, ok := d.(string)
		if !ok {
			return models.MOperationConfig{}, helpers.NewConfigParseError(fmt.Sprintf("description must be a string, got %T", d), nil)
		}
		cfg.Description = s
	}

	if p, ok := m["parameters"]; ok && p != nil {
		pm, ok := p.(map[string]interface{})
		if !ok {
			return models.MOperationConfig{}, helpers.NewConfigParseError(fmt.Sprintf("parameters must be an object, got %T", p), nil)
		}
		cfg.Parameters = pm
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------

// ParseFunctionName splits "filter_generate" (or "filter-generate") into kind and mode.
func ParseFunctionName(name string) (models.OperatorKind, models.OperatorMode, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	kind, mode, ok := strings.Cut(normalized, "_")
	if ok {
		k, m := models.OperatorKind(kind), models.OperatorMode(mode)
		switch k {
		case models.KindMap, models.KindFilter, models.KindAccumulate:
			switch m {
			case models.ModeDirect, models.ModeGenerate:
				return k, m, nil
			}
		}
	}
	return "", "", fmt.Errorf("%w: %q", helpers.ErrUnknownFunction, name)
}

// -----------------------------------------------------------------------------

// NewSpec builds and validates an operator spec from CLI-style arguments.
func NewSpec(kind models.OperatorKind, mode models.OperatorMode, symbol, configJSON, streamingOperator string) (*models.MOperatorSpec, error) {
	cfg, err := ParseOperationConfig(configJSON)
	if err != nil {
		return nil, err
	}
	return buildSpec(kind, mode, symbol, cfg, streamingOperator)
}

// SpecFromCommand builds a spec from a routed command.
func SpecFromCommand(cmd models.MRoutedCommand) (*models.MOperatorSpec, error) {
	kind, mode, err := ParseFunctionName(cmd.FunctionName)
	if err != nil {
		return nil, err
	}
	cfg, err := ConfigFromMap(cmd.OperationConfig)
	if err != nil {
		return nil, err
	}
	return buildSpec(kind, mode, cmd.Symbol, cfg, cmd.StreamingOperator)
}

func buildSpec(kind models.OperatorKind, mode models.OperatorMode, symbol string, cfg models.MOperationConfig, streamingOperator string) (*models.MOperatorSpec, error) {
	spec := &models.MOperatorSpec{
		ID:                uuid.NewString(),
		Kind:              kind,
		Mode:              mode,
		Symbol:            strings.TrimSpace(symbol),
		Config:            cfg,
		StreamingOperator: strings.TrimSpace(streamingOperator),
	}
	if err := spec.Validate(); err != nil {
		return nil, helpers.NewConfigParseError("invalid operator arguments", err)
	}
	return spec, nil
}
