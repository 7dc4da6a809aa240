package tx

import (
	"context"
	"strings"
	"testing"

	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flatFee = fee.NativePolicy{FlatFee: 1000}

// verifyP2PKHInputs checks every input's <sig> <pubkey> against its source.
func verifyP2PKHInputs(t *testing.T, chain *fakeChain, res *Result) {
	t.Helper()
	signed, err := transaction.NewTransactionFromHex(res.TxHex)
	require.NoError(t, err)
	sources, err := FetchSourceOutputs(context.Background(), chain.mock(), res.UTXOs)
	require.NoError(t, err)
	for i, in := range signed.Inputs {
		in.SetSourceTxOutput(sources[i])
		chunks, err := in.UnlockingScript.Chunks()
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.NoError(t, VerifyInputSignature(signed, i, chunks[0].Data, chunks[1].Data))
	}
}

func TestBuildTBCTransfer_SimpleSend(t *testing.T) {
	acct := newTestAccount(t, wallet.AccountTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Address())
	require.NoError(t, err)
	chain.unspent = chain.fund(t, fromLock, 100_000)
	to := testAddress(t)

	res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: to, Amount: 50_000, Password: testPassword, Policy: flatFee,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), res.Fee)
	require.Len(t, res.UTXOs, 1)
	assert.Equal(t, uint64(100_000), res.UTXOs[0].Value)
	require.NotNil(t, res.Change)
	assert.Equal(t, uint64(49_000), res.Change.Value)
	assert.Equal(t, res.TxID, res.Change.TxID)

	signed, err := transaction.NewTransactionFromHex(res.TxHex)
	require.NoError(t, err)
	require.Len(t, signed.Inputs, 1)
	require.Len(t, signed.Outputs, 2)
	assert.Equal(t, uint64(50_000), signed.Outputs[0].Satoshis)
	assert.Equal(t, uint64(49_000), signed.Outputs[1].Satoshis)
	assert.Equal(t, res.TxID, signed.TxID().String())

	// Conservation: inputs = outputs + fee.
	assert.Equal(t, res.UTXOs[0].Value, signed.TotalOutputSatoshis()+res.Fee)
	verifyP2PKHInputs(t, chain, res)
}

func TestBuildTBCTransfer_ExactDrain(t *testing.T) {
	acct := newTestAccount(t, wallet.AccountTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Address())
	require.NoError(t, err)
	chain.unspent = chain.fund(t, fromLock, 51_000)

	res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: testAddress(t), Amount: 50_000, Password: testPassword, Policy: flatFee,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), res.Fee)
	assert.Nil(t, res.Change)
	signed, err := transaction.NewTransactionFromHex(res.TxHex)
	require.NoError(t, err)
	assert.Len(t, signed.Outputs, 1)
}

func TestBuildTBCTransfer_DustBoundary(t *testing.T) {
	tests := []struct {
		name       string
		change     uint64
		wantChange bool
	}{
		{"below dust", 545, false},
		{"at dust", 546, false},
		{"above dust", 547, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := newTestAccount(t, wallet.AccountTBC)
			chain := newFakeChain()
			fromLock, err := P2PKHLock(acct.Address())
			require.NoError(t, err)
			chain.unspent = chain.fund(t, fromLock, 50_000+1000+tt.change)

			res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
				To: testAddress(t), Amount: 50_000, Password: testPassword, Policy: flatFee,
			})
			require.NoError(t, err)
			if tt.wantChange {
				require.NotNil(t, res.Change)
				assert.Equal(t, tt.change, res.Change.Value)
				assert.Equal(t, uint64(1000), res.Fee)
			} else {
				assert.Nil(t, res.Change)
				assert.Equal(t, 1000+tt.change, res.Fee)
			}
		})
	}
}

func TestBuildTBCTransfer_RefreshesStaleCache(t *testing.T) {
	acct := newTestAccount(t, wallet.AccountTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Address())
	require.NoError(t, err)

	stale := chain.fund(t, fromLock, 10_000)
	acct.UTXOs.Replace(stale)
	chain.unspent = append(stale, chain.fund(t, fromLock, 90_000)...)

	res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: testAddress(t), Amount: 50_000, Password: testPassword, Policy: flatFee,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, chain.listHits)
	require.Len(t, res.UTXOs, 1)
	assert.Equal(t, uint64(90_000), res.UTXOs[0].Value)
	verifyP2PKHInputs(t, chain, res)
}

func TestBuildTBCTransfer_MultipleInputs(t *testing.T) {
	acct := newTestAccount(t, wallet.AccountTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Address())
	require.NoError(t, err)
	chain.unspent = chain.fund(t, fromLock, 20_000, 20_000, 20_000)

	res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: testAddress(t), Amount: 50_000, Password: testPassword, Policy: flatFee,
	})
	require.NoError(t, err)
	assert.Len(t, res.UTXOs, 3)
	assert.Equal(t, uint64(1000), res.Fee)
	require.NotNil(t, res.Change)
	assert.Equal(t, uint64(9_000), res.Change.Value)
	verifyP2PKHInputs(t, chain, res)
}

func TestBuildTBCTransfer_FeeTierCrossingAddsInput(t *testing.T) {
	acct := newTestAccount(t, wallet.AccountTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Address())
	require.NoError(t, err)
	values := make([]uint64, 10)
	for i := range values {
		values[i] = 1_000
	}
	chain.unspent = chain.fund(t, fromLock, values...)

	// Seven inputs pass 1000 bytes and cost 90, one short of 6,915 + fee;
	// an eighth input brings the fee to 101.
	res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: testAddress(t), Amount: 6_915, Password: testPassword,
	})
	require.NoError(t, err)
	assert.Len(t, res.UTXOs, 8)
	assert.Equal(t, uint64(101), res.Fee)
	require.NotNil(t, res.Change)
	assert.Equal(t, uint64(8_000-6_915-101), res.Change.Value)
	verifyP2PKHInputs(t, chain, res)
}

func TestBuildTBCTransfer_TaprootTBCAccount(t *testing.T) {
	acct := newTestAccount(t, wallet.AccountTaprootTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Addresses.TaprootTBC)
	require.NoError(t, err)
	chain.unspent = chain.fund(t, fromLock, 100_000)

	res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: testAddress(t), Amount: 10_000, Password: testPassword,
	})
	require.NoError(t, err)
	verifyP2PKHInputs(t, chain, res)
	assert.Equal(t, fee.DefaultNativeFlatFee, res.Fee)
}

func TestBuildTBCTransfer_ToMultiSig(t *testing.T) {
	acct := newTestAccount(t, wallet.AccountTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Address())
	require.NoError(t, err)
	chain.unspent = chain.fund(t, fromLock, 100_000)

	pubs, _ := testPubKeys(t, 3)
	msAddr, err := MultiSigAddress(pubs, 2)
	require.NoError(t, err)
	msLock, err := MultiSigLock(pubs, 2)
	require.NoError(t, err)

	res, err := BuildTBCTransfer(context.Background(), acct, chain.mock(), &TransferParams{
		To: msAddr, Amount: 30_000, Password: testPassword, Policy: flatFee,
	})
	require.NoError(t, err)
	signed, err := transaction.NewTransactionFromHex(res.TxHex)
	require.NoError(t, err)
	assert.Equal(t, []byte(*msLock), []byte(*signed.Outputs[0].LockingScript))
}

func TestBuildTBCTransfer_Errors(t *testing.T) {
	ctx := context.Background()
	acct := newTestAccount(t, wallet.AccountTBC)
	chain := newFakeChain()
	fromLock, err := P2PKHLock(acct.Address())
	require.NoError(t, err)

	t.Run("nil params", func(t *testing.T) {
		_, err := BuildTBCTransfer(ctx, acct, chain.mock(), nil)
		assert.True(t, txerr.Is(err, txerr.Validation))
		assert.ErrorIs(t, err, ErrNilParam)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := BuildTBCTransfer(ctx, acct, chain.mock(), &TransferParams{To: testAddress(t)})
		assert.True(t, txerr.Is(err, txerr.Validation))
	})

	t.Run("bad address", func(t *testing.T) {
		_, err := BuildTBCTransfer(ctx, acct, chain.mock(), &TransferParams{To: "nope", Amount: 1})
		assert.True(t, txerr.Is(err, txerr.Validation))
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("btc account", func(t *testing.T) {
		btc := newTestAccount(t, wallet.AccountBTCLegacy)
		_, err := BuildTBCTransfer(ctx, btc, chain.mock(), &TransferParams{To: testAddress(t), Amount: 1})
		assert.True(t, txerr.Is(err, txerr.Validation))
	})

	t.Run("zero balance", func(t *testing.T) {
		empty := newFakeChain()
		_, err := BuildTBCTransfer(ctx, newTestAccount(t, wallet.AccountTBC), empty.mock(),
			&TransferParams{To: testAddress(t), Amount: 1000, Password: testPassword})
		assert.True(t, txerr.Is(err, txerr.ZeroBalance))
	})

	t.Run("insufficient after fee", func(t *testing.T) {
		c := newFakeChain()
		c.unspent = c.fund(t, fromLock, 50_500)
		_, err := BuildTBCTransfer(ctx, newTestAccount(t, wallet.AccountTBC), c.mock(),
			&TransferParams{To: testAddress(t), Amount: 50_000, Password: testPassword, Policy: flatFee})
		assert.True(t, txerr.Is(err, txerr.InsufficientFunds))
	})

	t.Run("wrong password", func(t *testing.T) {
		c := newFakeChain()
		c.unspent = c.fund(t, fromLock, 100_000)
		_, err := BuildTBCTransfer(ctx, newTestAccount(t, wallet.AccountTBC), c.mock(),
			&TransferParams{To: testAddress(t), Amount: 1000, Password: "bad"})
		assert.True(t, txerr.Is(err, txerr.AuthFailure))
	})

	t.Run("previous tx missing", func(t *testing.T) {
		c := newFakeChain()
		c.unspent = []utxo.UTXO{{TxID: strings.Repeat("22", 32), Vout: 0, Value: 100_000}}
		_, err := BuildTBCTransfer(ctx, newTestAccount(t, wallet.AccountTBC), c.mock(),
			&TransferParams{To: testAddress(t), Amount: 1000, Password: testPassword})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPrevTxFetch)
	})
}
