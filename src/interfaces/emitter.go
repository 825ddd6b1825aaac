package interfaces

import "stream-operators/src/models"

// -----------------------------------------------------------------------------
// IEmitter receives the results produced by running operators.
// -----------------------------------------------------------------------------

type IEmitter interface {
	Emit(emission models.MEmission)
}
