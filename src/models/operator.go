package models

import (
	"fmt"
	"strings"
)

// OperatorKind selects the transformation an operator applies to each event.
type OperatorKind string

const (
	KindMap        OperatorKind = "map"
	KindFilter     OperatorKind = "filter"
	KindAccumulate OperatorKind = "accumulate"
)

// OperatorMode selects how the transformation is evaluated.
type OperatorMode string

const (
	ModeDirect   OperatorMode = "direct"
	ModeGenerate OperatorMode = "generate"
)

// -----------------------------------------------------------------------------

// MOperationConfig is the parsed operation_config argument.
// Raw keeps the whole decoded object; Description and Parameters are its well-known keys.
type MOperationConfig struct {
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Raw         map[string]interface{} `json:"-"`
}

// Params returns the parameters handed to a transformation: the nested
// "parameters" object when present, otherwise every top-level key except "description".
func (c MOperationConfig) Params() map[string]interface{} {
	if len(c.Parameters) > 0 {
		return c.Parameters
	}
	out := make(map[string]interface{})
	for k, v := range c.Raw {
		if k == "description" || k == "parameters" {
			continue
		}
		out[k] = v
	}
	return out
}

// DescriptionOr returns the description or the given fallback when empty.
func (c MOperationConfig) DescriptionOr(fallback string) string {
	if strings.TrimSpace(c.Description) == "" {
		return fallback
	}
	return c.Description
}

// -----------------------------------------------------------------------------

// MOperatorSpec describes one operator instance bound to one stream symbol.
type MOperatorSpec struct {
	ID                string           `json:"id"`
	Kind              OperatorKind     `json:"kind"`
	Mode              OperatorMode     `json:"mode"`
	Symbol            string           `json:"symbol"`
	Config            MOperationConfig `json:"operation_config"`
	StreamingOperator string           `json:"streaming_operator,omitempty"`
}

// FunctionName returns the command name for the spec, e.g. "filter_generate".
func (s MOperatorSpec) FunctionName() string {
	return fmt.Sprintf("%s_%s", s.Kind, s.Mode)
}

// Validate checks the structural invariants of the spec.
func (s MOperatorSpec) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	switch s.Kind {
	case KindMap, KindFilter, KindAccumulate:
	default:
		return fmt.Errorf("unknown operator kind %q", s.Kind)
	}
	switch s.Mode {
	case ModeDirect, ModeGenerate:
	default:
		return fmt.Errorf("unknown operator mode %q", s.Mode)
	}
	if s.Kind == KindAccumulate && strings.TrimSpace(s.StreamingOperator) == "" {
		return fmt.Errorf("accumulate operators require a streaming operator")
	}
	return nil
}
