package network

import (
	"context"

	"github.com/bitfsorg/tbcwallet-go/utxo"
)

var (
	_ TBCService = (*MockChainService)(nil)
	_ BTCService = (*MockChainService)(nil)
)

// MockChainService is a test double for TBCService and BTCService.
// All function fields must be set before the corresponding method is called.
type MockChainService struct {
	ListUnspentFn            func(ctx context.Context, address string, minAmount uint64) ([]utxo.UTXO, error)
	GetRawTxFn               func(ctx context.Context, txid string) ([]byte, error)
	BroadcastTxFn            func(ctx context.Context, rawTxHex string) (string, error)
	FetchFTInfoFn            func(ctx context.Context, contractID string) (*FTInfo, error)
	FetchFTUTXOsFn           func(ctx context.Context, contractID, address string) ([]utxo.FTUTXO, error)
	FetchPrePreTxDataFn      func(ctx context.Context, txid string, vout uint32) (string, error)
	FetchUTXOsByScriptHashFn func(ctx context.Context, scriptHash string) ([]utxo.UTXO, error)
	FetchFeeRatesFn          func(ctx context.Context) (*FeeRates, error)
}

func (m *MockChainService) ListUnspent(ctx context.Context, address string, minAmount uint64) ([]utxo.UTXO, error) {
	return m.ListUnspentFn(ctx, address, minAmount)
}
func (m *MockChainService) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	return m.GetRawTxFn(ctx, txid)
}
func (m *MockChainService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	return m.BroadcastTxFn(ctx, rawTxHex)
}
func (m *MockChainService) FetchFTInfo(ctx context.Context, contractID string) (*FTInfo, error) {
	return m.FetchFTInfoFn(ctx, contractID)
}
func (m *MockChainService) FetchFTUTXOs(ctx context.Context, contractID, address string) ([]utxo.FTUTXO, error) {
	return m.FetchFTUTXOsFn(ctx, contractID, address)
}
func (m *MockChainService) FetchPrePreTxData(ctx context.Context, txid string, vout uint32) (string, error) {
	return m.FetchPrePreTxDataFn(ctx, txid, vout)
}
func (m *MockChainService) FetchUTXOsByScriptHash(ctx context.Context, scriptHash string) ([]utxo.UTXO, error) {
	return m.FetchUTXOsByScriptHashFn(ctx, scriptHash)
}
func (m *MockChainService) FetchFeeRates(ctx context.Context) (*FeeRates, error) {
	return m.FetchFeeRatesFn(ctx)
}
