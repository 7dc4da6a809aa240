package tx

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/require"
)

const testPassword = "pw"

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// fakeChain serves raw transactions and unspent listings from memory.
type fakeChain struct {
	txs      map[string][]byte
	unspent  []utxo.UTXO
	listHits int
}

func newFakeChain() *fakeChain {
	return &fakeChain{txs: make(map[string][]byte)}
}

func (f *fakeChain) mock() *network.MockChainService {
	return &network.MockChainService{
		ListUnspentFn: func(_ context.Context, _ string, _ uint64) ([]utxo.UTXO, error) {
			f.listHits++
			return f.unspent, nil
		},
		GetRawTxFn: func(_ context.Context, txid string) ([]byte, error) {
			raw, ok := f.txs[txid]
			if !ok {
				return nil, network.ErrTxNotFound
			}
			return raw, nil
		},
	}
}

// fund creates a transaction paying each value to lock and registers it.
func (f *fakeChain) fund(t *testing.T, lock *script.Script, values ...uint64) []utxo.UTXO {
	t.Helper()
	ftx := transaction.NewTransaction()
	require.NoError(t, AddInput(ftx, strings.Repeat("11", 32), uint32(len(f.txs))))
	ftx.Inputs[0].UnlockingScript = &script.Script{}
	for _, v := range values {
		ftx.AddOutput(&transaction.TransactionOutput{Satoshis: v, LockingScript: lock})
	}
	txid := ftx.TxID().String()
	f.txs[txid] = ftx.Bytes()

	out := make([]utxo.UTXO, len(values))
	for i, v := range values {
		out[i] = utxo.UTXO{TxID: txid, Vout: uint32(i), Value: v}
	}
	return out
}

func newTestAccount(t *testing.T, typ wallet.AccountType) *wallet.AccountContext {
	t.Helper()
	acct, err := wallet.NewAccount(wallet.KeyMaterial{Mnemonic: testMnemonic}, testPassword, typ, &wallet.MainNet)
	require.NoError(t, err)
	return acct
}

func testAddress(t *testing.T) string {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := script.NewAddressFromPublicKey(priv.PubKey(), true)
	require.NoError(t, err)
	return addr.AddressString
}

func testPubKeys(t *testing.T, n int) ([]string, []*ec.PrivateKey) {
	t.Helper()
	pubs := make([]string, n)
	privs := make([]*ec.PrivateKey, n)
	for i := range pubs {
		priv, err := ec.NewPrivateKey()
		require.NoError(t, err)
		privs[i] = priv
		pubs[i] = hex.EncodeToString(priv.PubKey().Compressed())
	}
	return pubs, privs
}
