package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvcfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"
)

const (
	// BIP44 path constants.
	PurposeBIP44 = 44
	CoinTypeTBC  = 236

	// Chain indices.
	ExternalChain = 0 // Receive addresses
	InternalChain = 1 // Change addresses

	// BIP32 hardened offset.
	Hardened = 0x80000000
)

// DerivationPath is the default account path used for mnemonic imports.
const DerivationPath = "m/44'/236'/0'/0/0"

// KeyFromMnemonic derives the account key m/44'/236'/account'/0/index.
func KeyFromMnemonic(mnemonic, passphrase string, account, index uint32, network *Network) (*ec.PrivateKey, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if network == nil {
		network = &MainNet
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive seed: %w", err)
	}

	params := &bsvcfg.TestNet
	if network.Mainnet {
		params = &bsvcfg.MainNet
	}
	master, err := bip32.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	path := []uint32{
		PurposeBIP44 + Hardened,
		CoinTypeTBC + Hardened,
		account + Hardened,
		ExternalChain,
		index,
	}
	current := master
	for depth, child := range path {
		current, err = current.Child(child)
		if err != nil {
			return nil, fmt.Errorf("%w: depth %d: %w", ErrDerivationFailed, depth, err)
		}
	}

	priv, err := current.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}
	return priv, nil
}

// KeyFromWIF parses a WIF-encoded private key.
func KeyFromWIF(wif string) (*ec.PrivateKey, error) {
	priv, err := ec.PrivateKeyFromWif(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWIF, err)
	}
	return priv, nil
}

// keyFromMaterial prefers the WIF and falls back to mnemonic derivation.
func keyFromMaterial(km *KeyMaterial, network *Network) (*ec.PrivateKey, error) {
	switch {
	case km.PrivateKeyWIF != "":
		return KeyFromWIF(km.PrivateKeyWIF)
	case km.Mnemonic != "":
		return KeyFromMnemonic(km.Mnemonic, "", 0, 0, network)
	default:
		return nil, ErrNoKeyMaterial
	}
}
