package ft

import "errors"

var (
	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("ft: invalid parameters")

	// ErrInvalidContractID indicates a contract id that is not a 32-byte hex txid.
	ErrInvalidContractID = errors.New("ft: invalid contract id")

	// ErrInvalidCode indicates a script that is not a token output of the expected contract.
	ErrInvalidCode = errors.New("ft: invalid token script")

	// ErrInsufficientFT indicates the account's token balance is below the amount.
	ErrInsufficientFT = errors.New("ft: insufficient token balance")

	// ErrNoTokens indicates the account holds no outputs of the contract.
	ErrNoTokens = errors.New("ft: no token outputs")

	// ErrMergeRequired indicates the balance is spread over more outputs than one
	// transfer may spend.
	ErrMergeRequired = errors.New("ft: insufficient FT balance, merge required")

	// ErrMergeFailed indicates the merge pass did not converge.
	ErrMergeFailed = errors.New("ft: failed to merge")

	// ErrAncestorFetch indicates an input's ancestor data could not be fetched.
	ErrAncestorFetch = errors.New("ft: ancestor data unavailable")
)
