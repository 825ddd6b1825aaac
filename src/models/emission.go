package models

import "time"

// MEmission is one result produced by an operator for one event.
type MEmission struct {
	OperatorID  string       `json:"operator_id"`
	Symbol      string       `json:"symbol"`
	Kind        OperatorKind `json:"kind"`
	Mode        OperatorMode `json:"mode"`
	Price       float64      `json:"price"`
	Result      interface{}  `json:"result,omitempty"`
	Accumulator interface{}  `json:"accumulator,omitempty"`
	Passed      bool         `json:"passed"`
	MarketOpen  bool         `json:"market_open"`
	Timestamp   int64        `json:"timestamp"`
	CreatedAt   time.Time    `json:"created_at"`
}

// MGeneratedFunctionRecord is the audit row written when a function is synthesized.
type MGeneratedFunctionRecord struct {
	OperatorID string       `json:"operator_id"`
	Kind       OperatorKind `json:"kind"`
	Name       string       `json:"name"`
	Signature  string       `json:"signature"`
	Source     string       `json:"source"`
	CreatedAt  time.Time    `json:"created_at"`
}
