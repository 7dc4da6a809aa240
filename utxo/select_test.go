package utxo

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mk(txid string, vout uint32, value uint64) UTXO {
	return UTXO{TxID: txid, Vout: vout, Value: value, Script: "76a914"}
}

func TestSelectBTCSingleCoversTarget(t *testing.T) {
	rate := decimal.NewFromInt(2)
	amount := uint64(50_000)
	need := amount + fee.BTCFee(1, 2, rate)

	candidates := []UTXO{
		mk("aa", 0, 20_000),
		mk("bb", 0, need),
		mk("cc", 0, 30_000),
		mk("dd", 0, 10_000),
	}
	sel, err := SelectBTC(candidates, amount, rate)
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 1)
	assert.Equal(t, "bb", sel.Inputs[0].TxID)
	assert.Equal(t, need, sel.Total)
}

func TestSelectBTCGreedyGrowsTarget(t *testing.T) {
	rate := decimal.NewFromInt(1)
	// base target = 40_000 + 78 (2 outputs + overhead); +180 per input
	candidates := []UTXO{
		mk("aa", 0, 15_000),
		mk("bb", 0, 20_000),
		mk("cc", 0, 6_000),
		mk("dd", 0, 1_000),
	}
	sel, err := SelectBTC(candidates, 40_000, rate)
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 3)
	assert.Equal(t, []string{"bb", "aa", "cc"}, []string{sel.Inputs[0].TxID, sel.Inputs[1].TxID, sel.Inputs[2].TxID})
	assert.Equal(t, uint64(41_000), sel.Total)
}

func TestSelectBTCErrors(t *testing.T) {
	rate := decimal.NewFromInt(1)

	_, err := SelectBTC(nil, 1000, rate)
	assert.True(t, txerr.Is(err, txerr.ZeroBalance))
	assert.ErrorIs(t, err, ErrZeroBalance)

	_, err = SelectBTC([]UTXO{mk("aa", 0, 500)}, 1000, rate)
	assert.True(t, txerr.Is(err, txerr.InsufficientFunds))

	_, err = SelectBTC([]UTXO{mk("aa", 0, 500)}, 0, rate)
	assert.True(t, txerr.Is(err, txerr.Validation))

	spent := mk("aa", 0, 100_000)
	spent.IsSpent = true
	_, err = SelectBTC([]UTXO{spent}, 1000, rate)
	assert.True(t, txerr.Is(err, txerr.ZeroBalance), "spent entries are not candidates")
}

func TestSelectNative(t *testing.T) {
	candidates := []UTXO{
		mk("big", 0, 90_000),
		mk("exact", 0, 10_000),
		mk("mid", 0, 12_000),
		mk("small", 0, 3_000),
	}

	t.Run("exact match", func(t *testing.T) {
		sel, err := SelectNative(candidates, 10_000)
		require.NoError(t, err)
		require.Len(t, sel.Inputs, 1)
		assert.Equal(t, "exact", sel.Inputs[0].TxID)
	})

	t.Run("smallest single that covers", func(t *testing.T) {
		sel, err := SelectNative(candidates, 11_000)
		require.NoError(t, err)
		require.Len(t, sel.Inputs, 1)
		assert.Equal(t, "mid", sel.Inputs[0].TxID)
	})

	t.Run("accumulate smallest first", func(t *testing.T) {
		sel, err := SelectNative(candidates, 100_000)
		require.NoError(t, err)
		assert.Len(t, sel.Inputs, 4)
		assert.Equal(t, uint64(115_000), sel.Total)
	})

	t.Run("insufficient", func(t *testing.T) {
		_, err := SelectNative(candidates, 200_000)
		assert.True(t, txerr.Is(err, txerr.InsufficientFunds))
	})
}

func TestSelectNativeFunc_TargetGrowsWithInputs(t *testing.T) {
	var candidates []UTXO
	for i := 0; i < 10; i++ {
		candidates = append(candidates, mk("aa", uint32(i), 1_000))
	}
	need := func(n int) uint64 { return 6_900 + 20*uint64(n) }

	// 7 inputs cover the one-input target but not their own fee.
	sel, err := SelectNativeFunc(candidates, need)
	require.NoError(t, err)
	assert.Len(t, sel.Inputs, 8)
	assert.Equal(t, uint64(8_000), sel.Total)

	t.Run("single output matched against one-input need", func(t *testing.T) {
		sel, err := SelectNativeFunc(append([]UTXO{mk("bb", 0, 6_920)}, candidates...), need)
		require.NoError(t, err)
		require.Len(t, sel.Inputs, 1)
		assert.Equal(t, "bb", sel.Inputs[0].TxID)
	})

	t.Run("insufficient reports need at full size", func(t *testing.T) {
		_, err := SelectNativeFunc(candidates[:7], need)
		assert.True(t, txerr.Is(err, txerr.InsufficientFunds))
		assert.ErrorContains(t, err, "need 7040, have 7000")
	})

	t.Run("zero need", func(t *testing.T) {
		_, err := SelectNativeFunc(candidates, func(int) uint64 { return 0 })
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestSelectWithRefreshUsesCacheFirst(t *testing.T) {
	cache := NewCache([]UTXO{mk("aa", 0, 100_000)})
	fetch := func(context.Context) ([]UTXO, error) {
		t.Fatal("fetch should not be called when the cache suffices")
		return nil, nil
	}
	sel, err := SelectWithRefresh(context.Background(), cache, fetch, func(c []UTXO) (*Selection, error) {
		return SelectNative(c, 50_000)
	})
	require.NoError(t, err)
	assert.Equal(t, "aa", sel.Inputs[0].TxID)
}

func TestSelectWithRefreshRefetchesOnStaleCache(t *testing.T) {
	stale := mk("aa", 0, 1_000)
	cache := NewCache([]UTXO{stale})
	calls := 0
	fetch := func(context.Context) ([]UTXO, error) {
		calls++
		return []UTXO{mk("bb", 1, 80_000)}, nil
	}
	sel, err := SelectWithRefresh(context.Background(), cache, fetch, func(c []UTXO) (*Selection, error) {
		return SelectNative(c, 50_000)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "bb", sel.Inputs[0].TxID)
	assert.Equal(t, uint64(80_000), cache.Balance(), "vanished output kept only as spent history")
	assert.Len(t, cache.Snapshot(), 2)
}

func TestSelectWithRefreshPropagatesFetchError(t *testing.T) {
	boom := errors.New("api down")
	_, err := SelectWithRefresh(context.Background(), NewCache(nil),
		func(context.Context) ([]UTXO, error) { return nil, boom },
		func(c []UTXO) (*Selection, error) { return SelectNative(c, 1) })
	assert.ErrorIs(t, err, boom)
}
