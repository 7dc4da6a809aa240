package multisig

import (
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Recipient is one payment of a multisig transaction.
type Recipient struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Transaction is an M-of-N transaction in progress. TxHex is the unsigned
// transaction; UnsignedTxID, the double SHA256 of its bytes, identifies it
// until it is broadcast. Amounts and Scripts describe the output each
// input spends so any signer can compute the sighash offline. Proofs holds
// the ancestor proof of token inputs and is empty for native inputs.
type Transaction struct {
	UnsignedTxID string              `json:"unsigned_txid"`
	TxHex        string              `json:"txHex"`
	Amounts      []uint64            `json:"amounts"`
	Scripts      []string            `json:"scripts"`
	Proofs       []string            `json:"proofs,omitempty"`
	Address      string              `json:"multiSig_address"`
	PubKeys      []string            `json:"pubKeys"`
	Required     int                 `json:"requiredSignatures"`
	ContractID   string              `json:"contractId,omitempty"`
	Recipients   []Recipient         `json:"recipients"`
	Signatures   map[string][]string `json:"signatures"` // signer pubkey -> per-input signature hex
	State        State               `json:"state"`
	TxID         string              `json:"txid,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// Wallet returns the descriptor of the address the transaction spends from.
func (t *Transaction) Wallet() *Wallet {
	return &Wallet{Address: t.Address, PubKeys: t.PubKeys, Required: t.Required}
}

// IsFT reports whether the transaction moves tokens.
func (t *Transaction) IsFT() bool {
	return t.ContractID != ""
}

// Signers returns the public keys that have signed, in key-set order.
func (t *Transaction) Signers() []string {
	out := make([]string, 0, len(t.Signatures))
	for _, pk := range t.PubKeys {
		if _, ok := t.Signatures[pk]; ok {
			out = append(out, pk)
		}
	}
	return out
}

// SignatureCount is the number of distinct wallet members that signed.
func (t *Transaction) SignatureCount() int {
	return len(t.Signers())
}

// HasSigned reports whether pubKey has signed.
func (t *Transaction) HasSigned(pubKey string) bool {
	_, ok := t.Signatures[pubKey]
	return ok
}

// AddSignature records pubKey's per-input signatures and moves the
// transaction to WaitOtherSign or WaitBroadcasted. Signing again replaces
// the signer's earlier signatures.
func (t *Transaction) AddSignature(pubKey string, sigs []string) error {
	if t.State.Final() {
		return fmt.Errorf("%w: cannot sign a %s transaction", ErrInvalidState, t.State)
	}
	if !slices.Contains(t.PubKeys, pubKey) {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, pubKey)
	}
	if len(sigs) != len(t.Amounts) {
		return fmt.Errorf("%w: %d signatures for %d inputs", ErrInvalidParams, len(sigs), len(t.Amounts))
	}
	if t.Signatures == nil {
		t.Signatures = make(map[string][]string)
	}
	t.Signatures[pubKey] = slices.Clone(sigs)
	t.State = stateFor(t.SignatureCount(), t.Required)
	return nil
}

// Complete records a successful broadcast.
func (t *Transaction) Complete(txid string) error {
	if t.State != StateWaitBroadcasted {
		return fmt.Errorf("%w: cannot complete a %s transaction", ErrInvalidState, t.State)
	}
	if txid == "" {
		return fmt.Errorf("%w: empty txid", ErrInvalidParams)
	}
	t.TxID = txid
	t.State = StateCompleted
	return nil
}

// Withdraw cancels the transaction on behalf of pubKey. The outputs it
// would have spent are untouched.
func (t *Transaction) Withdraw(pubKey string) error {
	if !slices.Contains(t.PubKeys, pubKey) {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, pubKey)
	}
	if t.State.Final() {
		return fmt.Errorf("%w: cannot withdraw a %s transaction", ErrInvalidState, t.State)
	}
	t.State = StateWithdrawn
	return nil
}

// UnsignedTxID returns the identity of an unsigned raw transaction.
func UnsignedTxID(raw []byte) string {
	return chainhash.DoubleHashH(raw).String()
}

// unsigned parses TxHex, checks it against UnsignedTxID and attaches the
// source output of every input.
func (t *Transaction) unsigned() (*transaction.Transaction, error) {
	raw, err := hex.DecodeString(t.TxHex)
	if err != nil {
		return nil, fmt.Errorf("%w: tx hex: %w", ErrInvalidParams, err)
	}
	if id := UnsignedTxID(raw); id != t.UnsignedTxID {
		return nil, fmt.Errorf("%w: hashes to %s, want %s", ErrTxMismatch, id, t.UnsignedTxID)
	}
	sdkTx, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrInvalidParams, err)
	}
	if len(sdkTx.Inputs) != len(t.Amounts) || len(sdkTx.Inputs) != len(t.Scripts) {
		return nil, fmt.Errorf("%w: %d inputs, %d amounts, %d scripts",
			ErrTxMismatch, len(sdkTx.Inputs), len(t.Amounts), len(t.Scripts))
	}
	if len(t.Proofs) != 0 && len(t.Proofs) != len(sdkTx.Inputs) {
		return nil, fmt.Errorf("%w: %d proofs for %d inputs", ErrTxMismatch, len(t.Proofs), len(sdkTx.Inputs))
	}
	for i, in := range sdkTx.Inputs {
		lock, err := script.NewFromHex(t.Scripts[i])
		if err != nil {
			return nil, fmt.Errorf("%w: script %d: %w", ErrInvalidParams, i, err)
		}
		in.SetSourceTxOutput(&transaction.TransactionOutput{Satoshis: t.Amounts[i], LockingScript: lock})
	}
	return sdkTx, nil
}

// newTransaction wraps an unsigned transaction. sources[i] is the output
// input i spends; proofs is nil or holds one entry per input.
func newTransaction(w *Wallet, sdkTx *transaction.Transaction, sources []*transaction.TransactionOutput,
	proofs [][]byte, contractID string, recipients []Recipient, now time.Time) *Transaction {
	t := &Transaction{
		Address:    w.Address,
		PubKeys:    slices.Clone(w.PubKeys),
		Required:   w.Required,
		ContractID: contractID,
		Recipients: recipients,
		Signatures: make(map[string][]string),
		State:      StateWaitSigned,
		CreatedAt:  now.UTC(),
	}
	for i, in := range sdkTx.Inputs {
		in.UnlockingScript = &script.Script{}
		src := sources[i]
		t.Amounts = append(t.Amounts, src.Satoshis)
		t.Scripts = append(t.Scripts, hex.EncodeToString(*src.LockingScript))
	}
	if proofs != nil {
		for _, p := range proofs {
			t.Proofs = append(t.Proofs, hex.EncodeToString(p))
		}
	}
	raw := sdkTx.Bytes()
	t.TxHex = hex.EncodeToString(raw)
	t.UnsignedTxID = UnsignedTxID(raw)
	return t
}
