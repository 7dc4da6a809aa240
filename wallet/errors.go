package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrInvalidWIF indicates the private key string is not a valid WIF.
	ErrInvalidWIF = errors.New("wallet: invalid WIF private key")

	// ErrNoKeyMaterial indicates neither a WIF nor a mnemonic was supplied.
	ErrNoKeyMaterial = errors.New("wallet: no key material")

	// ErrDecryptionFailed indicates wrong password or corrupted key material.
	ErrDecryptionFailed = errors.New("wallet: key decryption failed (wrong password or corrupted data)")

	// ErrAccountNotFound indicates no account is registered for an address.
	ErrAccountNotFound = errors.New("wallet: account not found")

	// ErrInvalidNetwork indicates an unknown network name.
	ErrInvalidNetwork = errors.New("wallet: invalid network name")

	// ErrInvalidAccountType indicates an unknown account scheme.
	ErrInvalidAccountType = errors.New("wallet: invalid account type")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")
)
