// Package upstream defines the error taxonomy shared by all external API
// clients. Callers match with errors.Is to decide whether a failed fetch is
// retryable, should be backed off, or indicates a broken response shape.
package upstream

import "errors"

var (
	// ErrUnavailable covers network failures and non-2xx responses.
	// Callers should treat it as "no data this cycle", not fatal.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited is a rejection by the upstream rate limiter. No
	// automatic retry is built in; backing off is the caller's decision.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrMalformed means the response decoded but did not have the
	// expected shape.
	ErrMalformed = errors.New("malformed upstream response")
)
