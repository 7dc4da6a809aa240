package ft

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"
	"testing"

	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/require"
)

const (
	testPassword   = "pw"
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testContractID = "c0ffeec0ffeec0ffeec0ffeec0ffeec0ffeec0ffeec0ffeec0ffeec0ffeec0ff"
)

// tokenChain is an in-memory native chain that understands token outputs.
type tokenChain struct {
	mu         sync.Mutex
	txs        map[string][]byte
	proofs     map[string]string
	tokens     []utxo.FTUTXO
	unspent    []utxo.UTXO
	nativeLock []byte
	broadcasts []string
	seq        int
}

func newTokenChain(t *testing.T, owner string) *tokenChain {
	t.Helper()
	lock, err := tx.P2PKHLock(owner)
	require.NoError(t, err)
	return &tokenChain{
		txs:        make(map[string][]byte),
		proofs:     make(map[string]string),
		nativeLock: *lock,
	}
}

func (c *tokenChain) mock() *network.MockChainService {
	return &network.MockChainService{
		ListUnspentFn: func(context.Context, string, uint64) ([]utxo.UTXO, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return append([]utxo.UTXO(nil), c.unspent...), nil
		},
		GetRawTxFn: func(_ context.Context, txid string) ([]byte, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			raw, ok := c.txs[txid]
			if !ok {
				return nil, network.ErrTxNotFound
			}
			return raw, nil
		},
		FetchFTUTXOsFn: func(context.Context, string, string) ([]utxo.FTUTXO, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return append([]utxo.FTUTXO(nil), c.tokens...), nil
		},
		FetchPrePreTxDataFn: func(_ context.Context, txid string, vout uint32) (string, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			data, ok := c.proofs[utxo.FTUTXO{TxID: txid, Vout: vout}.Outpoint()]
			if !ok {
				return "", network.ErrTxNotFound
			}
			return data, nil
		},
		BroadcastTxFn: func(_ context.Context, rawHex string) (string, error) {
			signed, err := transaction.NewTransactionFromHex(rawHex)
			if err != nil {
				return "", err
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			c.accept(signed)
			txid := signed.TxID().String()
			c.broadcasts = append(c.broadcasts, txid)
			return txid, nil
		},
	}
}

// accept applies a transaction to the in-memory state.
func (c *tokenChain) accept(t *transaction.Transaction) {
	spent := make(map[string]bool)
	for _, in := range t.Inputs {
		spent[utxo.UTXO{TxID: in.SourceTXID.String(), Vout: in.SourceTxOutIndex}.Outpoint()] = true
	}
	tokens := c.tokens[:0:0]
	for _, u := range c.tokens {
		if !spent[u.Outpoint()] {
			tokens = append(tokens, u)
		}
	}
	native := c.unspent[:0:0]
	for _, u := range c.unspent {
		if !spent[u.Outpoint()] {
			native = append(native, u)
		}
	}

	txid := t.TxID().String()
	c.txs[txid] = t.Bytes()
	for i, o := range t.Outputs {
		if cid, balance, _, err := ParseCodeLock(o.LockingScript); err == nil {
			u := utxo.FTUTXO{TxID: txid, Vout: uint32(i), Value: o.Satoshis, Balance: balance, ContractID: cid}
			tokens = append(tokens, u)
			c.proofs[u.Outpoint()] = hex.EncodeToString([]byte("proof:" + u.Outpoint()))
			continue
		}
		if string(*o.LockingScript) == string(c.nativeLock) {
			native = append(native, utxo.UTXO{TxID: txid, Vout: uint32(i), Value: o.Satoshis})
		}
	}
	c.tokens, c.unspent = tokens, native
}

// fund mints a parent transaction with the given outputs and accepts it.
func (c *tokenChain) fund(t *testing.T, outs ...*transaction.TransactionOutput) {
	t.Helper()
	parent := transaction.NewTransaction()
	c.seq++
	require.NoError(t, tx.AddInput(parent, strings.Repeat("11", 32), uint32(c.seq)))
	parent.Inputs[0].UnlockingScript = &script.Script{}
	for _, o := range outs {
		parent.AddOutput(o)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accept(parent)
}

func (c *tokenChain) fundNative(t *testing.T, values ...uint64) {
	t.Helper()
	lock := script.Script(c.nativeLock)
	outs := make([]*transaction.TransactionOutput, len(values))
	for i, v := range values {
		outs[i] = &transaction.TransactionOutput{Satoshis: v, LockingScript: &lock}
	}
	c.fund(t, outs...)
}

func (c *tokenChain) fundTokens(t *testing.T, balances ...uint64) {
	t.Helper()
	owner := script.Script(c.nativeLock)
	outs := make([]*transaction.TransactionOutput, len(balances))
	for i, b := range balances {
		lock, err := CodeLock(testContractID, b, &owner)
		require.NoError(t, err)
		outs[i] = &transaction.TransactionOutput{Satoshis: CodeOutputValue, LockingScript: lock}
	}
	c.fund(t, outs...)
}

func (c *tokenChain) tokenBalance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum uint64
	for _, u := range c.tokens {
		sum += u.Balance
	}
	return sum
}

// chainSubmitter broadcasts and reconciles like the production submitter.
type chainSubmitter struct {
	chain network.Broadcaster
	calls int
}

func (s *chainSubmitter) Submit(ctx context.Context, acct *wallet.AccountContext, res *tx.Result) (string, error) {
	s.calls++
	txid, err := s.chain.BroadcastTx(ctx, res.TxHex)
	if err != nil {
		return "", err
	}
	acct.UTXOs.MarkSpent(res.UTXOs)
	if res.Change != nil {
		acct.UTXOs.Add(*res.Change)
	}
	return txid, nil
}

func newTestAccount(t *testing.T) *wallet.AccountContext {
	t.Helper()
	acct, err := wallet.NewAccount(wallet.KeyMaterial{Mnemonic: testMnemonic}, testPassword, wallet.AccountTBC, &wallet.MainNet)
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

// verifyTokenTx checks every input signature and the token balance flow.
func verifyTokenTx(t *testing.T, c *tokenChain, txHex string) *transaction.Transaction {
	t.Helper()
	signed, err := transaction.NewTransactionFromHex(txHex)
	require.NoError(t, err)
	var tokensIn, tokensOut uint64
	for i, in := range signed.Inputs {
		prev, err := tx.FetchTx(context.Background(), c.mock(), in.SourceTXID.String())
		require.NoError(t, err)
		src := prev.Outputs[in.SourceTxOutIndex]
		in.SetSourceTxOutput(src)
		chunks, err := in.UnlockingScript.Chunks()
		require.NoError(t, err)
		if _, balance, _, err := ParseCodeLock(src.LockingScript); err == nil {
			tokensIn += balance
			require.Len(t, chunks, 3)
			require.NotEmpty(t, chunks[2].Data)
		} else {
			require.Len(t, chunks, 2)
		}
		require.NoError(t, tx.VerifyInputSignature(signed, i, chunks[0].Data, chunks[1].Data))
	}
	for _, o := range signed.Outputs {
		if _, balance, _, err := ParseCodeLock(o.LockingScript); err == nil {
			tokensOut += balance
		}
	}
	require.Equal(t, tokensIn, tokensOut, "token balance conserved")
	return signed
}
