package operators

import (
	"context"
	"fmt"
	"io"

	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/models"
)

// ReadAdhoc subscribes, waits for the initial sync, prints the current price once and unsubscribes.
func ReadAdhoc(ctx context.Context, subscriber interfaces.ISubscriber, symbol string, out io.Writer) (models.MStreamEvent, error) {
	sub, err := subscriber.Subscribe(ctx, symbol)
	if err != nil {
		return models.MStreamEvent{}, err
	}
	defer sub.Close()

	ev, ok := sub.Latest()
	if !ok {
		return models.MStreamEvent{}, helpers.NewSubscriptionError(fmt.Sprintf("no value synced for %s", symbol), nil)
	}
	if out != nil {
		fmt.Fprintf(out, "Ad-hoc read result for %s is: %s\n", symbol, formatPrice(ev.Price))
	}
	return ev, nil
}

// ReadStreaming prints every price update for symbol until ctx is cancelled or the stream ends.
func ReadStreaming(ctx context.Context, subscriber interfaces.ISubscriber, symbol string, out io.Writer) error {
	fmt.Fprintln(out, "Streaming data, press Ctrl+C to stop")
	sub, err := subscriber.Subscribe(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		_ = sub.Close()
		fmt.Fprintln(out, "Streaming stopped")
	}()

	updates := sub.Updates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "Streaming read result is: %s\n", formatPrice(upd.Event.Price))
		}
	}
}
