// Package network talks to the chain read/write APIs. It is the boundary at
// which broadcast rejections are classified into txerr kinds.
package network

import (
	"context"

	"github.com/bitfsorg/tbcwallet-go/utxo"
)

// ChainReader lists outputs and fetches raw transactions.
type ChainReader interface {
	// ListUnspent returns the unspent outputs of address. A non-zero
	// minAmount keeps only outputs worth at least that much.
	ListUnspent(ctx context.Context, address string, minAmount uint64) ([]utxo.UTXO, error)

	// GetRawTx returns the raw transaction bytes for txid.
	GetRawTx(ctx context.Context, txid string) ([]byte, error)
}

// Broadcaster submits signed transactions.
type Broadcaster interface {
	// BroadcastTx submits raw hex and returns the txid. Double-spend
	// rejections are tagged txerr.Conflict.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)
}

// TBCService is the native-chain API.
type TBCService interface {
	ChainReader
	Broadcaster

	// FetchFTInfo returns token metadata by contract (genesis) txid.
	FetchFTInfo(ctx context.Context, contractID string) (*FTInfo, error)

	// FetchFTUTXOs lists the token outputs of address for a contract.
	FetchFTUTXOs(ctx context.Context, contractID, address string) ([]utxo.FTUTXO, error)

	// FetchPrePreTxData returns the ancestor proof blob for a token output.
	FetchPrePreTxData(ctx context.Context, txid string, vout uint32) (string, error)

	// FetchUTXOsByScriptHash lists outputs locked by the script whose
	// reversed SHA256 is scriptHash.
	FetchUTXOsByScriptHash(ctx context.Context, scriptHash string) ([]utxo.UTXO, error)
}

// BTCService is the Bitcoin API.
type BTCService interface {
	ChainReader
	Broadcaster

	// FetchFeeRates returns recommended fee rates in sat/vbyte.
	FetchFeeRates(ctx context.Context) (*FeeRates, error)
}

// FTInfo describes a fungible token contract.
type FTInfo struct {
	ContractID  string `json:"ftContractId"`
	Name        string `json:"ftName"`
	Symbol      string `json:"ftSymbol"`
	Decimals    int32  `json:"ftDecimal"`
	TotalSupply uint64 `json:"ftSupply"`
}

// FeeRates are the recommended Bitcoin fee tiers in sat/vbyte.
type FeeRates struct {
	Fastest  uint64 `json:"fastestFee"`
	HalfHour uint64 `json:"halfHourFee"`
	Hour     uint64 `json:"hourFee"`
}

// Tier returns the rate for a tier name ("fastest", "halfHour", "hour").
// Unknown names fall back to halfHour.
func (r FeeRates) Tier(name string) uint64 {
	switch name {
	case "fastest":
		return r.Fastest
	case "hour":
		return r.Hour
	default:
		return r.HalfHour
	}
}
