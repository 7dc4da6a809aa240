package tx

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("tx: required parameter is nil")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("tx: invalid parameters")

	// ErrInvalidAddress indicates a recipient address that is neither P2PKH nor multisig.
	ErrInvalidAddress = errors.New("tx: invalid address")

	// ErrInsufficientFunds indicates the selected inputs cannot cover amount plus fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrPrevTxFetch indicates a previous transaction could not be fetched or does not
	// contain the referenced output.
	ErrPrevTxFetch = errors.New("tx: previous transaction unavailable")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("tx: signing failed")

	// ErrScriptBuild indicates script construction failed.
	ErrScriptBuild = errors.New("tx: script build failed")

	// ErrInvalidMultiSig indicates a malformed multisig address, key set or threshold.
	ErrInvalidMultiSig = errors.New("tx: invalid multisig parameters")

	// ErrInvalidSignature indicates a signature that does not verify against its key.
	ErrInvalidSignature = errors.New("tx: invalid signature")
)
