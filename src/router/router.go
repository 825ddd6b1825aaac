package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/models"
)

// -----------------------------------------------------------------------------

// Router turns free-text commands into dispatched operator commands. A
// failed cycle (prompt, parse, dispatch) is retried from scratch up to
// MaxAttempts times.
type Router struct {
	client     interfaces.ICompletionClient
	dispatcher interfaces.IDispatcher
	logger     *logger.Logger

	MaxAttempts int
	MaxRetries  int
	RetryDelay  time.Duration
}

// -----------------------------------------------------------------------------

func NewRouter(client interfaces.ICompletionClient, dispatcher interfaces.IDispatcher, cfg models.MRouterConfig, retryDelay time.Duration, log *logger.Logger) *Router {
	if log == nil {
		log = logger.NewLogger(nil, "Router")
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Router{
		client:      client,
		dispatcher:  dispatcher,
		logger:      log,
		MaxAttempts: attempts,
		MaxRetries:  retries,
		RetryDelay:  retryDelay,
	}
}

// -----------------------------------------------------------------------------

// Route resolves command and dispatches it, returning the routed command.
func (r *Router) Route(ctx context.Context, command string) (models.MRoutedCommand, error) {
	prompt := BuildPrompt(command)
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.MRoutedCommand{}, err
		}

		cmd, err := r.attempt(ctx, prompt)
		if err == nil {
			r.logger.Info("Routed %q to %s on %s", command, cmd.FunctionName, cmd.Symbol)
			return cmd, nil
		}
		if ctx.Err() != nil {
			return models.MRoutedCommand{}, ctx.Err()
		}
		if errors.Is(err, helpers.ErrUnsupportedCommand) {
			return cmd, err
		}

		lastErr = err
		r.logger.Warning("Routing attempt %d/%d failed: %v", attempt, r.MaxAttempts, err)
		if attempt < r.MaxAttempts {
			if err := helpers.Sleep(ctx, r.RetryDelay); err != nil {
				return models.MRoutedCommand{}, err
			}
		}
	}

	return models.MRoutedCommand{}, helpers.NewRoutingFailedError(
		fmt.Sprintf("could not route %q after %d attempts", command, r.MaxAttempts), lastErr)
}

func (r *Router) attempt(ctx context.Context, prompt string) (models.MRoutedCommand, error) {
	obj, err := r.client.CompleteObject(ctx, prompt, r.MaxRetries, r.RetryDelay)
	if err != nil {
		return models.MRoutedCommand{}, err
	}
	r.logger.Debug("Intent: %v", obj)

	cmd, err := NormalizeIntent(obj)
	if err != nil {
		return models.MRoutedCommand{}, err
	}
	if err := r.dispatcher.Dispatch(ctx, cmd); err != nil {
		return cmd, err
	}
	return cmd, nil
}
