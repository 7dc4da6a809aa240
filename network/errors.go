package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the API.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrRequestFailed indicates the API answered with an error status.
	ErrRequestFailed = errors.New("network: request failed")

	// ErrTxNotFound indicates the requested transaction does not exist.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrBroadcastRejected indicates the node rejected the broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse indicates the API returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")
)
