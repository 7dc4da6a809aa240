package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bitfsorg/tbcwallet-go/multisig"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "nested", "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tempHistoryDB(t *testing.T) *HistoryDB {
	t.Helper()
	h, err := OpenHistoryDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

// ---------------------------------------------------------------------------
// UTXO cache
// ---------------------------------------------------------------------------

func TestBoltStore_UTXOs(t *testing.T) {
	s := tempBoltStore(t)

	got, err := s.LoadUTXOs("addr1")
	require.NoError(t, err)
	assert.Nil(t, got)

	list := []utxo.UTXO{
		{TxID: strings.Repeat("aa", 32), Vout: 0, Value: 1_000, Script: "76a9"},
		{TxID: strings.Repeat("bb", 32), Vout: 2, Value: 2_000, IsSpent: true},
	}
	require.NoError(t, s.SaveUTXOs("addr1", list))
	require.NoError(t, s.SaveUTXOs("addr10", list[:1]))

	got, err = s.LoadUTXOs("addr1")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	// addr1 must not prefix-match addr10.
	got, err = s.LoadUTXOs("addr10")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, s.DeleteUTXOs("addr1"))
	got, err = s.LoadUTXOs("addr1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.SaveUTXOs("", list), ErrNilParam)
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveUTXOs("addr", []utxo.UTXO{{TxID: "t", Value: 5}}))
	require.NoError(t, s.Close())

	s, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadUTXOs("addr")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(5), got[0].Value)
}

// ---------------------------------------------------------------------------
// Asset ownership rows
// ---------------------------------------------------------------------------

func TestBoltStore_AssetsSoftDeleteAndRestore(t *testing.T) {
	s := tempBoltStore(t)
	require.NoError(t, s.PutAsset(&Asset{Kind: AssetFT, ID: "cid1", Owner: "alice", Symbol: "AAA", Decimals: 6, Amount: 10}))
	require.NoError(t, s.PutAsset(&Asset{Kind: AssetFT, ID: "cid2", Owner: "alice", Symbol: "BBB"}))
	require.NoError(t, s.PutAsset(&Asset{Kind: AssetNFT, ID: "nft1", Owner: "alice"}))
	require.NoError(t, s.PutAsset(&Asset{Kind: AssetFT, ID: "cid1", Owner: "bob"}))

	fts, err := s.ListAssets(AssetFT, "alice", false)
	require.NoError(t, err)
	assert.Len(t, fts, 2)

	require.NoError(t, s.SoftDeleteAsset(AssetFT, "alice", "cid1"))
	fts, err = s.ListAssets(AssetFT, "alice", false)
	require.NoError(t, err)
	require.Len(t, fts, 1)
	assert.Equal(t, "cid2", fts[0].ID)

	all, err := s.ListAssets(AssetFT, "alice", true)
	require.NoError(t, err)
	assert.Len(t, all, 2, "soft-deleted rows are kept")

	a, err := s.GetAsset(AssetFT, "alice", "cid1")
	require.NoError(t, err)
	assert.True(t, a.IsDeleted)
	assert.Equal(t, int32(6), a.Decimals)

	require.NoError(t, s.RestoreAsset(AssetFT, "alice", "cid1"))
	fts, err = s.ListAssets(AssetFT, "alice", false)
	require.NoError(t, err)
	assert.Len(t, fts, 2)

	bobs, err := s.ListAssets(AssetFT, "bob", false)
	require.NoError(t, err)
	assert.Len(t, bobs, 1)
}

func TestBoltStore_AssetErrors(t *testing.T) {
	s := tempBoltStore(t)
	assert.ErrorIs(t, s.PutAsset(nil), ErrNilParam)
	assert.ErrorIs(t, s.PutAsset(&Asset{Kind: "coin", ID: "x", Owner: "o"}), ErrInvalidKind)
	assert.ErrorIs(t, s.SoftDeleteAsset(AssetNFT, "o", "missing"), ErrNotFound)
	_, err := s.GetAsset(AssetNFT, "o", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ListAssets("coin", "o", false)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

// ---------------------------------------------------------------------------
// Multisig address book
// ---------------------------------------------------------------------------

func TestBoltStore_MultiSigBook(t *testing.T) {
	s := tempBoltStore(t)
	w := &multisig.Wallet{Address: "msaddr1", PubKeys: []string{"02aa", "02bb", "02cc"}, Required: 2}
	require.NoError(t, s.PutMultiSig("alice", w))
	require.NoError(t, s.PutMultiSig("alice", &multisig.Wallet{Address: "msaddr2", PubKeys: []string{"02dd"}, Required: 1}))

	got, err := s.GetMultiSig("alice", "msaddr1")
	require.NoError(t, err)
	assert.Equal(t, *w, *got)

	require.NoError(t, s.SoftDeleteMultiSig("alice", "msaddr1"))
	list, err := s.ListMultiSig("alice", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "msaddr2", list[0].Address)

	list, err = s.ListMultiSig("alice", true)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.RestoreMultiSig("alice", "msaddr1"))
	got, err = s.GetMultiSig("alice", "msaddr1")
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)

	assert.ErrorIs(t, s.SoftDeleteMultiSig("bob", "msaddr1"), ErrNotFound)
	assert.ErrorIs(t, s.PutMultiSig("", w), ErrNilParam)
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

func TestHistoryDB_PutListOrder(t *testing.T) {
	h := tempHistoryDB(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, h.PutHistory(&HistoryRow{
			TxID: id, Address: "alice", Kind: HistoryTBC, Amount: -int64(1000 * (i + 1)), Fee: 80,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, h.PutHistory(&HistoryRow{TxID: "f1", Address: "alice", Kind: HistoryFT, ContractID: "cid", Amount: 5, Timestamp: base}))

	rows, err := h.ListHistory(HistoryTBC, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "t3", rows[0].TxID, "newest first")
	assert.Equal(t, int64(-3000), rows[0].Amount)
	assert.Equal(t, uint64(80), rows[0].Fee)
	assert.Equal(t, base.Add(2*time.Hour), rows[0].Timestamp)

	page, err := h.ListHistory(HistoryTBC, "alice", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "t2", page[0].TxID)

	fts, err := h.ListHistory(HistoryFT, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, fts, 1)
	assert.Equal(t, "cid", fts[0].ContractID)
}

func TestHistoryDB_Upsert(t *testing.T) {
	h := tempHistoryDB(t)
	row := &HistoryRow{TxID: "t1", Address: "alice", Kind: HistoryMultiSig, Amount: -10, Status: "wait_other_sign"}
	require.NoError(t, h.PutHistory(row))
	row.Status = "completed"
	require.NoError(t, h.PutHistory(row))

	got, err := h.GetHistory("t1", "alice", HistoryMultiSig)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)

	rows, err := h.ListHistory(HistoryMultiSig, "alice", 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = h.GetHistory("nope", "alice", HistoryTBC)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.PutHistory(&HistoryRow{TxID: "x", Address: "a", Kind: "coin"}), ErrInvalidKind)
	assert.ErrorIs(t, h.PutHistory(&HistoryRow{Kind: HistoryTBC}), ErrNilParam)
}
