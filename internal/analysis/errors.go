package analysis

import "errors"

var (
	// ErrRemoteDisabled marks a remote call attempted while the engine
	// was constructed without credentials. Permanent for the process.
	ErrRemoteDisabled = errors.New("remote reasoning engine disabled")

	// ErrRateLimited marks a remote call that exhausted its backoff
	// retries against the service's rate limit.
	ErrRateLimited = errors.New("remote reasoning rate limited")

	// ErrMalformedResponse marks a remote payload that failed schema
	// validation. Never retried.
	ErrMalformedResponse = errors.New("remote reasoning returned malformed payload")
)
