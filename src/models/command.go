package models

// MCommandIntent is the raw intent returned by the reasoning service for a free-text command.
type MCommandIntent struct {
	FunctionName string                 `json:"function"`
	Parameters   map[string]interface{} `json:"parameters"`
}

// MRoutedCommand is the single canonical shape every intent is normalized into before dispatch.
type MRoutedCommand struct {
	FunctionName      string                 `json:"function"`
	Symbol            string                 `json:"symbol"`
	OperationConfig   map[string]interface{} `json:"operation_config,omitempty"`
	StreamingOperator string                 `json:"streaming_operator,omitempty"`
}
