package utxo

import "errors"

var (
	// ErrZeroBalance indicates there are no spendable outputs at all.
	ErrZeroBalance = errors.New("utxo: zero balance")

	// ErrInsufficientFunds indicates outputs exist but cannot cover amount plus fee.
	ErrInsufficientFunds = errors.New("utxo: insufficient funds")

	// ErrInvalidAmount indicates a zero target amount.
	ErrInvalidAmount = errors.New("utxo: amount must be positive")
)
