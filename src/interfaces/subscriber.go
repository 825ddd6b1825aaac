package interfaces

import (
	"context"

	"stream-operators/src/models"
)

// -----------------------------------------------------------------------------
// ISubscriber opens value subscriptions on named streams.
// -----------------------------------------------------------------------------

type ISubscriber interface {

	// -----------------------------------------------------------------------------

	// Subscribe opens the stream for symbol and blocks until the initial sync
	// arrives, the sync timeout elapses or ctx is cancelled.
	Subscribe(ctx context.Context, symbol string) (ISubscription, error)
}

// -----------------------------------------------------------------------------
// ISubscription is one open stream. Updates are delivered in order.
// -----------------------------------------------------------------------------

type ISubscription interface {

	// Updates delivers (new, previous) pairs until the subscription closes.
	Updates() <-chan models.MStreamUpdate

	// Latest returns the most recent value, false before the first one.
	Latest() (models.MStreamEvent, bool)

	// Close unsubscribes; safe to call more than once.
	Close() error
}
