package models

import "time"

// OperatorState is a step of the operator lifecycle.
type OperatorState string

const (
	StateCreated    OperatorState = "created"
	StateSubscribed OperatorState = "subscribed"
	StateRunning    OperatorState = "running"
	StateStopped    OperatorState = "stopped"
)

// operatorTransitions lists the lifecycle edges. The main path is
// Created -> Subscribed -> Running -> Stopped; Created and Subscribed may end
// in Stopped directly when preparation or the initial sync fails, or when the
// operator is stopped early. Running is never reached without Subscribed.
var operatorTransitions = map[OperatorState][]OperatorState{
	StateCreated:    {StateSubscribed, StateStopped},
	StateSubscribed: {StateRunning, StateStopped},
	StateRunning:    {StateStopped},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s OperatorState) CanTransition(next OperatorState) bool {
	for _, allowed := range operatorTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// MOperatorStatus is the externally visible snapshot of an operator instance.
type MOperatorStatus struct {
	ID              string        `json:"id"`
	Function        string        `json:"function"`
	Symbol          string        `json:"symbol"`
	State           OperatorState `json:"state"`
	EventsProcessed int64         `json:"events_processed"`
	Emissions       int64         `json:"emissions"`
	LastError       string        `json:"last_error,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
}
