package btctx

import "errors"

var (
	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("btctx: invalid parameters")

	// ErrInvalidAddress indicates an address not valid for the account's network.
	ErrInvalidAddress = errors.New("btctx: invalid address")

	// ErrInsufficientFunds indicates the selected inputs cannot cover amount plus fee.
	ErrInsufficientFunds = errors.New("btctx: insufficient funds")

	// ErrPrevTxFetch indicates a previous transaction could not be fetched or parsed.
	ErrPrevTxFetch = errors.New("btctx: previous transaction unavailable")

	// ErrFeeRate indicates no usable fee rate could be determined.
	ErrFeeRate = errors.New("btctx: fee rate unavailable")

	// ErrSigningFailed indicates PSBT signing or finalization failed.
	ErrSigningFailed = errors.New("btctx: signing failed")
)
