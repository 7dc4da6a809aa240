package vault

import "errors"

var (
	// ErrInvalidRequest indicates a malformed send or multisig request.
	ErrInvalidRequest = errors.New("vault: invalid request")

	// ErrNoPending indicates Submit was called without a pending transaction.
	ErrNoPending = errors.New("vault: no pending transaction")

	// ErrNotMember indicates the account's key is not part of the multisig wallet.
	ErrNotMember = errors.New("vault: account is not a member of the multisig wallet")

	// ErrLocked indicates another process holds the data directory.
	ErrLocked = errors.New("vault: data directory is locked")

	// ErrOffline indicates an operation needs a collaborator that is not configured.
	ErrOffline = errors.New("vault: service not configured")
)
