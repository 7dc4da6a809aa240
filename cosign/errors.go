package cosign

import "errors"

var (
	// ErrNotFound indicates the relay holds no transaction with the id.
	ErrNotFound = errors.New("cosign: transaction not found")

	// ErrRejected indicates the relay refused a malformed or unverifiable request.
	ErrRejected = errors.New("cosign: request rejected")

	// ErrStateConflict indicates the transaction is not in a state that
	// allows the requested transition.
	ErrStateConflict = errors.New("cosign: state conflict")

	// ErrRequestFailed indicates a transport or server failure.
	ErrRequestFailed = errors.New("cosign: request failed")
)

// Error codes carried in the relay's error payload.
const (
	codeBadRequest = "bad_request"
	codeNotFound   = "not_found"
	codeConflict   = "conflict"
	codeUnknown    = "unknown_error"
)
