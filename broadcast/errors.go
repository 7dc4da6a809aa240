package broadcast

import "errors"

var (
	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("broadcast: invalid parameters")

	// ErrRetryFailed indicates the single rebuild after a conflict failed.
	ErrRetryFailed = errors.New("broadcast: retry after conflict failed")
)
