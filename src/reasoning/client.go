package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/metric"
)

// -----------------------------------------------------------------------------

// Client wraps a reasoner with the bounded retry and JSON extraction contract.
type Client struct {
	reasoner interfaces.IReasoner
	logger   *logger.Logger
	metrics  *metric.Metrics
}

// -----------------------------------------------------------------------------

func NewClient(reasoner interfaces.IReasoner, log *logger.Logger, metrics *metric.Metrics) *Client {
	if log == nil {
		log = logger.NewLogger(nil, "ReasoningClient")
	}
	return &Client{
		reasoner: reasoner,
		logger:   log,
		metrics:  metrics,
	}
}

// -----------------------------------------------------------------------------

// Complete submits prompt up to maxRetries times, sleeping retryDelay between
// attempts. With expectJSON the first JSON object of the reply is decoded and
// its "result" key is returned when present; otherwise the trimmed text is returned.
func (c *Client) Complete(ctx context.Context, prompt string, expectJSON bool, maxRetries int, retryDelay time.Duration) (interface{}, error) {
	return c.complete(ctx, prompt, maxRetries, retryDelay, func(text string) (interface{}, error) {
		if !expectJSON {
			return text, nil
		}
		obj, err := ParseJSONObject(text)
		if err != nil {
			return nil, err
		}
		return UnwrapResult(obj), nil
	})
}

// -----------------------------------------------------------------------------

// CompleteObject is Complete with expectJSON but returns the whole decoded
// object without unwrapping "result".
func (c *Client) CompleteObject(ctx context.Context, prompt string, maxRetries int, retryDelay time.Duration) (map[string]interface{}, error) {
	out, err := c.complete(ctx, prompt, maxRetries, retryDelay, func(text string) (interface{}, error) {
		return ParseJSONObject(text)
	})
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

// -----------------------------------------------------------------------------

func (c *Client) complete(ctx context.Context, prompt string, maxRetries int, retryDelay time.Duration, decode func(string) (interface{}, error)) (interface{}, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		text, err := c.reasoner.Complete(ctx, prompt)
		if err == nil {
			var out interface{}
			out, err = decode(strings.TrimSpace(text))
			if err == nil {
				c.metrics.RecordReasoningCall(true)
				return out, nil
			}
		}
		c.metrics.RecordReasoningCall(false)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		c.logger.Warning("Error: %v, retrying... (%d/%d)", err, attempt, maxRetries)
		if attempt == maxRetries {
			break
		}
		c.metrics.RecordReasoningRetry()
		if err := helpers.Sleep(ctx, retryDelay); err != nil {
			return nil, err
		}
	}

	return nil, helpers.NewReasoningServiceError(
		"failed to get valid response from reasoning service",
		fmt.Errorf("%w after %d attempts: %v", helpers.ErrMaxRetriesExceeded, maxRetries, lastErr),
	)
}
