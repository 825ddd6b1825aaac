package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for outbound HTTP requests.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Post sends body as JSON to url with the given extra headers.
	// Returns the response body as bytes or an error for non-2xx statuses.
	Post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error)
}
