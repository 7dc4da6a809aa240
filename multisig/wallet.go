// Package multisig coordinates M-of-N transactions on the native chain.
// The initiating signer builds and self-signs, the other signers add their
// signatures out of band through a coordination relay, and any signer
// finishes once the threshold is met.
package multisig

import (
	"fmt"
	"slices"

	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bsv-blockchain/go-sdk/script"
)

// DepositAmount is the native amount sent to a new multisig address when
// the wallet is created.
const DepositAmount = uint64(10_000)

// Wallet describes a multisig address. PubKeys are kept sorted.
type Wallet struct {
	Address   string   `json:"multiSig_address"`
	PubKeys   []string `json:"pubKeys"`
	Required  int      `json:"requiredSignatures"`
	IsDeleted bool     `json:"isDeleted"`
}

// NewWallet validates an M-of-N key set and derives its address.
func NewWallet(pubKeys []string, required int) (*Wallet, error) {
	if err := tx.ValidateMultiSig(pubKeys, required); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWallet, err)
	}
	sorted, err := tx.SortPubKeys(pubKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWallet, err)
	}
	addr, err := tx.MultiSigAddress(sorted, required)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWallet, err)
	}
	return &Wallet{Address: addr, PubKeys: sorted, Required: required}, nil
}

// Validate checks that the descriptor is internally consistent, including
// that Address is the one derived from PubKeys and Required.
func (w *Wallet) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: nil wallet", ErrInvalidWallet)
	}
	want, err := NewWallet(w.PubKeys, w.Required)
	if err != nil {
		return err
	}
	if want.Address != w.Address {
		return fmt.Errorf("%w: address %s does not match key set", ErrInvalidWallet, w.Address)
	}
	return nil
}

// Lock returns the locking script of the wallet's address.
func (w *Wallet) Lock() (*script.Script, error) {
	return tx.MultiSigLock(w.PubKeys, w.Required)
}

// ScriptHash returns the key the chain API indexes the wallet's outputs by.
func (w *Wallet) ScriptHash() (string, error) {
	lock, err := w.Lock()
	if err != nil {
		return "", err
	}
	return tx.ScriptHash(lock), nil
}

// Index returns the position of pubKey in the sorted key set, or -1.
func (w *Wallet) Index(pubKey string) int {
	return slices.Index(w.PubKeys, pubKey)
}

// HasSigner reports whether pubKey belongs to the wallet.
func (w *Wallet) HasSigner(pubKey string) bool {
	return w.Index(pubKey) >= 0
}
