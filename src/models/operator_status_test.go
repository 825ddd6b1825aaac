package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorStateTransitions(t *testing.T) {
	allowed := [][2]OperatorState{
		{StateCreated, StateSubscribed},
		{StateCreated, StateStopped},
		{StateSubscribed, StateRunning},
		{StateSubscribed, StateStopped},
		{StateRunning, StateStopped},
	}
	for _, edge := range allowed {
		assert.True(t, edge[0].CanTransition(edge[1]), "%s -> %s", edge[0], edge[1])
	}

	refused := [][2]OperatorState{
		{StateCreated, StateRunning},
		{StateRunning, StateSubscribed},
		{StateStopped, StateCreated},
		{StateStopped, StateRunning},
		{StateStopped, StateStopped},
	}
	for _, edge := range refused {
		assert.False(t, edge[0].CanTransition(edge[1]), "%s -> %s", edge[0], edge[1])
	}
}
