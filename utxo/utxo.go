// Package utxo models spendable outputs, the copy-on-write local cache that
// tracks which of them this wallet has already consumed, and the input
// selectors used by the transaction builders.
package utxo

import (
	"fmt"
)

// UTXO is one spendable output. IsSpent is a local annotation: it marks an
// output consumed by a broadcast this wallet made, until the chain catches up.
type UTXO struct {
	TxID    string `json:"txid"` // display-order hex
	Vout    uint32 `json:"vout"`
	Value   uint64 `json:"value"`  // smallest unit
	Script  string `json:"script"` // locking script hex
	Height  uint32 `json:"height,omitempty"`
	IsSpent bool   `json:"is_spent"`
}

// Outpoint returns the "txid:vout" key that identifies the output.
func (u UTXO) Outpoint() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Vout)
}

// Total sums the values of utxos.
func Total(utxos []UTXO) uint64 {
	var sum uint64
	for _, u := range utxos {
		sum += u.Value
	}
	return sum
}

// Unspent returns the entries not flagged spent.
func Unspent(utxos []UTXO) []UTXO {
	out := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if !u.IsSpent && u.Value > 0 {
			out = append(out, u)
		}
	}
	return out
}

// FTUTXO is a token-carrying output: Value is the native coin it holds,
// Balance is the token amount in token units.
type FTUTXO struct {
	TxID       string `json:"txid"`
	Vout       uint32 `json:"vout"`
	Value      uint64 `json:"value"`
	Balance    uint64 `json:"balance"`
	ContractID string `json:"contract_id"`
	Script     string `json:"script"`
}

// Outpoint returns the "txid:vout" key that identifies the output.
func (u FTUTXO) Outpoint() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Vout)
}

// AsUTXO returns the plain-output view used for spent tracking.
func (u FTUTXO) AsUTXO() UTXO {
	return UTXO{TxID: u.TxID, Vout: u.Vout, Value: u.Value, Script: u.Script}
}
