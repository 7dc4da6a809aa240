package multisig

import "errors"

var (
	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("multisig: invalid parameters")

	// ErrInvalidWallet indicates a key set or threshold outside the allowed range.
	ErrInvalidWallet = errors.New("multisig: invalid wallet")

	// ErrUnknownSigner indicates a public key that is not part of the wallet.
	ErrUnknownSigner = errors.New("multisig: signer not in wallet")

	// ErrThresholdNotMet indicates fewer valid distinct signatures than required.
	ErrThresholdNotMet = errors.New("multisig: signature threshold not met")

	// ErrInvalidState indicates a transition the transaction's state does not allow.
	ErrInvalidState = errors.New("multisig: invalid state transition")

	// ErrTxMismatch indicates the raw transaction does not hash to its unsigned id.
	ErrTxMismatch = errors.New("multisig: transaction does not match its id")

	// ErrNoUTXOs indicates the multisig address has nothing to spend.
	ErrNoUTXOs = errors.New("multisig: no spendable outputs")
)
