package interfaces

import (
	"context"

	"stream-operators/src/models"
)

// -----------------------------------------------------------------------------
// IDispatcher executes a normalized command (start an operator, read a value).
// -----------------------------------------------------------------------------

type IDispatcher interface {
	Dispatch(ctx context.Context, cmd models.MRoutedCommand) error
}
