package btctx

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "pw"
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

// btcChain is an in-memory BTC API.
type btcChain struct {
	txs      map[string][]byte
	prevOuts map[wire.OutPoint]*wire.TxOut
	unspent  []utxo.UTXO
	rates    network.FeeRates
}

func newBTCChain() *btcChain {
	return &btcChain{
		txs:      make(map[string][]byte),
		prevOuts: make(map[wire.OutPoint]*wire.TxOut),
		rates:    network.FeeRates{Fastest: 3, HalfHour: 2, Hour: 1},
	}
}

func (c *btcChain) mock() *network.MockChainService {
	return &network.MockChainService{
		ListUnspentFn: func(context.Context, string, uint64) ([]utxo.UTXO, error) {
			return c.unspent, nil
		},
		GetRawTxFn: func(_ context.Context, txid string) ([]byte, error) {
			raw, ok := c.txs[txid]
			if !ok {
				return nil, network.ErrTxNotFound
			}
			return raw, nil
		},
		FetchFeeRatesFn: func(context.Context) (*network.FeeRates, error) {
			r := c.rates
			return &r, nil
		},
	}
}

func (c *btcChain) fund(t *testing.T, pkScript []byte, values ...int64) {
	t.Helper()
	msg := wire.NewMsgTx(wire.TxVersion)
	msg.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{byte(len(c.txs) + 1)}, 0), nil, nil))
	for _, v := range values {
		msg.AddTxOut(wire.NewTxOut(v, pkScript))
	}
	var buf bytes.Buffer
	require.NoError(t, msg.Serialize(&buf))
	hash := msg.TxHash()
	c.txs[hash.String()] = buf.Bytes()
	for i, v := range values {
		c.prevOuts[*wire.NewOutPoint(&hash, uint32(i))] = msg.TxOut[i]
		c.unspent = append(c.unspent, utxo.UTXO{TxID: hash.String(), Vout: uint32(i), Value: uint64(v)})
	}
}

// verify runs every input of the signed transaction through the script engine.
func (c *btcChain) verify(t *testing.T, txHex string) *wire.MsgTx {
	t.Helper()
	raw, err := hex.DecodeString(txHex)
	require.NoError(t, err)
	msg := wire.NewMsgTx(wire.TxVersion)
	require.NoError(t, msg.Deserialize(bytes.NewReader(raw)))

	fetcher := txscript.NewMultiPrevOutFetcher(c.prevOuts)
	hashes := txscript.NewTxSigHashes(msg, fetcher)
	for i, in := range msg.TxIn {
		prev := c.prevOuts[in.PreviousOutPoint]
		require.NotNil(t, prev)
		vm, err := txscript.NewEngine(prev.PkScript, msg, i, txscript.StandardVerifyFlags, nil, hashes, prev.Value, fetcher)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
	return msg
}

func newBTCAccount(t *testing.T, typ wallet.AccountType) (*wallet.AccountContext, []byte) {
	t.Helper()
	acct, err := wallet.NewAccount(wallet.KeyMaterial{Mnemonic: testMnemonic}, testPassword, typ, &wallet.MainNet)
	require.NoError(t, err)
	pkScript, err := payToScript(acct.Address(), wallet.MainNet.BTC)
	require.NoError(t, err)
	return acct, pkScript
}

func recipient(t *testing.T) string {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := wallet.BTCTaprootAddress(priv.PubKey(), &wallet.MainNet)
	require.NoError(t, err)
	return addr
}

func TestBuildTransfer_Taproot(t *testing.T) {
	acct, pkScript := newBTCAccount(t, wallet.AccountBTCTaproot)
	chain := newBTCChain()
	chain.fund(t, pkScript, 100_000)

	res, err := BuildTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: recipient(t), Amount: 50_000, Password: testPassword, FeeRate: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(516), res.Fee)
	require.NotNil(t, res.Change)
	assert.Equal(t, uint64(49_484), res.Change.Value)
	assert.Less(t, res.Info.TxVsize, res.Info.TxSize)

	msg := chain.verify(t, res.TxHex)
	require.Len(t, msg.TxOut, 2)
	assert.Equal(t, int64(50_000), msg.TxOut[0].Value)
	assert.Equal(t, res.TxID, msg.TxHash().String())
	assert.Len(t, msg.TxIn[0].Witness, 1)
	assert.Len(t, msg.TxIn[0].Witness[0], 64)
}

func TestBuildTransfer_LegacyGreedy(t *testing.T) {
	acct, pkScript := newBTCAccount(t, wallet.AccountBTCLegacy)
	chain := newBTCChain()
	chain.fund(t, pkScript, 30_000, 30_000)

	res, err := BuildTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: recipient(t), Amount: 50_000, Password: testPassword, FeeRate: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	assert.Len(t, res.UTXOs, 2)
	assert.Equal(t, uint64(438), res.Fee)
	require.NotNil(t, res.Change)
	assert.Equal(t, uint64(9_562), res.Change.Value)
	assert.Equal(t, res.Info.TxSize, res.Info.TxVsize)

	msg := chain.verify(t, res.TxHex)
	assert.NotEmpty(t, msg.TxIn[0].SignatureScript)
}

func TestBuildTransfer_FeeCapHalvesRate(t *testing.T) {
	acct, pkScript := newBTCAccount(t, wallet.AccountBTCTaproot)
	chain := newBTCChain()
	chain.fund(t, pkScript, 10_000)

	res, err := BuildTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: recipient(t), Amount: 1_000, Password: testPassword, FeeRate: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_290), res.Fee)
	chain.verify(t, res.TxHex)
}

func TestBuildTransfer_DustChange(t *testing.T) {
	tests := []struct {
		name       string
		fund       int64
		wantChange bool
		wantFee    uint64
	}{
		{"change 545 dropped", 10_803, false, 803},
		{"change 546 dropped", 10_804, false, 804},
		{"change 547 kept", 10_805, true, 258},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, pkScript := newBTCAccount(t, wallet.AccountBTCTaproot)
			chain := newBTCChain()
			chain.fund(t, pkScript, tt.fund)

			res, err := BuildTransfer(context.Background(), acct, chain.mock(), &TransferParams{
				To: recipient(t), Amount: 10_000, Password: testPassword, FeeRate: decimal.NewFromInt(1),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantChange, res.Change != nil)
			assert.Equal(t, tt.wantFee, res.Fee)
			chain.verify(t, res.TxHex)
		})
	}
}

func TestBuildTransfer_FetchesTierRate(t *testing.T) {
	acct, pkScript := newBTCAccount(t, wallet.AccountBTCTaproot)
	chain := newBTCChain()
	chain.fund(t, pkScript, 100_000)

	res, err := BuildTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: recipient(t), Amount: 50_000, Password: testPassword, FeeTier: "hour",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(258), res.Fee)

	chain.rates = network.FeeRates{}
	_, err = BuildTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: recipient(t), Amount: 50_000, Password: testPassword,
	})
	assert.ErrorIs(t, err, ErrFeeRate)
}

func TestBuildTransfer_Errors(t *testing.T) {
	ctx := context.Background()
	rate := decimal.NewFromInt(1)
	acct, pkScript := newBTCAccount(t, wallet.AccountBTCTaproot)

	t.Run("native account", func(t *testing.T) {
		tbc, err := wallet.NewAccount(wallet.KeyMaterial{Mnemonic: testMnemonic}, testPassword, wallet.AccountTBC, nil)
		require.NoError(t, err)
		_, err = BuildTransfer(ctx, tbc, newBTCChain().mock(), &TransferParams{To: recipient(t), Amount: 1, FeeRate: rate})
		assert.True(t, txerr.Is(err, txerr.Validation))
	})

	t.Run("testnet recipient", func(t *testing.T) {
		priv, err := ec.NewPrivateKey()
		require.NoError(t, err)
		testAddr, err := wallet.BTCTaprootAddress(priv.PubKey(), &wallet.TestNet)
		require.NoError(t, err)
		_, err = BuildTransfer(ctx, acct, newBTCChain().mock(), &TransferParams{To: testAddr, Amount: 1, FeeRate: rate})
		assert.True(t, txerr.Is(err, txerr.Validation))
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("zero balance", func(t *testing.T) {
		fresh, _ := newBTCAccount(t, wallet.AccountBTCTaproot)
		_, err := BuildTransfer(ctx, fresh, newBTCChain().mock(), &TransferParams{To: recipient(t), Amount: 1000, FeeRate: rate})
		assert.True(t, txerr.Is(err, txerr.ZeroBalance))
	})

	t.Run("insufficient", func(t *testing.T) {
		fresh, _ := newBTCAccount(t, wallet.AccountBTCTaproot)
		chain := newBTCChain()
		chain.fund(t, pkScript, 1_000)
		_, err := BuildTransfer(ctx, fresh, chain.mock(), &TransferParams{To: recipient(t), Amount: 1_000, FeeRate: rate})
		assert.True(t, txerr.Is(err, txerr.InsufficientFunds))
	})

	t.Run("wrong password", func(t *testing.T) {
		fresh, _ := newBTCAccount(t, wallet.AccountBTCTaproot)
		chain := newBTCChain()
		chain.fund(t, pkScript, 100_000)
		_, err := BuildTransfer(ctx, fresh, chain.mock(), &TransferParams{To: recipient(t), Amount: 1_000, Password: "bad", FeeRate: rate})
		assert.True(t, txerr.Is(err, txerr.AuthFailure))
	})
}
