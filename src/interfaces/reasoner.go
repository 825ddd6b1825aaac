package interfaces

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// IReasoner submits one prompt to the completion service and returns its raw text.
// -----------------------------------------------------------------------------

type IReasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// -----------------------------------------------------------------------------
// ICompletionClient is the retrying client on top of an IReasoner.
// -----------------------------------------------------------------------------

type ICompletionClient interface {

	// Complete returns the decoded "result" value (or whole object) when
	// expectJSON is set, the trimmed text otherwise.
	Complete(ctx context.Context, prompt string, expectJSON bool, maxRetries int, retryDelay time.Duration) (interface{}, error)

	// CompleteObject returns the first JSON object of the reply as-is.
	CompleteObject(ctx context.Context, prompt string, maxRetries int, retryDelay time.Duration) (map[string]interface{}, error)
}
