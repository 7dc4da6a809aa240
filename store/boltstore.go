// Package store persists wallet records: the UTXO cache, asset ownership
// rows, the multisig address book (bbolt) and transaction history
// (sqlite). Ownership and address-book rows are soft-deleted so they can
// be restored.
package store

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/multisig"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"go.etcd.io/bbolt"
)

var (
	bucketUTXOs    = []byte("utxos")
	bucketAssets   = []byte("assets")
	bucketMultiSig = []byte("multisig")
)

// AssetKind is the type of an ownership row.
type AssetKind string

// Asset kinds.
const (
	AssetFT         AssetKind = "ft"
	AssetNFT        AssetKind = "nft"
	AssetCollection AssetKind = "collection"
)

func (k AssetKind) valid() bool {
	return k == AssetFT || k == AssetNFT || k == AssetCollection
}

// Asset is an ownership row keyed by (Kind, Owner, ID). ID is the token
// contract id, NFT id or collection id.
type Asset struct {
	Kind      AssetKind
	ID        string
	Owner     string
	Name      string
	Symbol    string
	Decimals  int32
	Amount    uint64
	IsDeleted bool
	UpdatedAt time.Time
}

// MultiSigRecord is an address-book row for a multisig wallet the owner
// belongs to.
type MultiSigRecord struct {
	Owner     string
	Wallet    multisig.Wallet
	UpdatedAt time.Time
}

// BoltStore wraps a bbolt database holding the wallet's records.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUTXOs, bucketAssets, bucketMultiSig} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	log.Store.Debug().Str("path", dbPath).Msg("bolt store opened")
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// recordKey joins key parts with a zero byte so a prefix of parts scans
// every record under it.
func recordKey(parts ...string) []byte {
	return []byte(strings.Join(parts, "\x00") + "\x00")
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func put(tx *bbolt.Tx, bucket, key []byte, v any) error {
	data, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("boltstore: encode: %w", err)
	}
	if err := tx.Bucket(bucket).Put(key, data); err != nil {
		return fmt.Errorf("boltstore: put: %w", err)
	}
	return nil
}

func get[T any](tx *bbolt.Tx, bucket, key []byte) (*T, error) {
	data := tx.Bucket(bucket).Get(key)
	if data == nil {
		return nil, ErrNotFound
	}
	var v T
	if err := decodeGob(data, &v); err != nil {
		return nil, fmt.Errorf("boltstore: decode: %w", err)
	}
	return &v, nil
}

// scan decodes every record under prefix.
func scan[T any](tx *bbolt.Tx, bucket, prefix []byte) ([]*T, error) {
	var out []*T
	c := tx.Bucket(bucket).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var rec T
		if err := decodeGob(v, &rec); err != nil {
			return nil, fmt.Errorf("boltstore: decode %q: %w", k, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// UTXO cache
// ---------------------------------------------------------------------------

// SaveUTXOs replaces the persisted cache of address.
func (s *BoltStore) SaveUTXOs(address string, utxos []utxo.UTXO) error {
	if address == "" {
		return fmt.Errorf("%w: address", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketUTXOs, recordKey(address), utxos)
	})
}

// LoadUTXOs returns the persisted cache of address, or nil if none.
func (s *BoltStore) LoadUTXOs(address string) ([]utxo.UTXO, error) {
	var out []utxo.UTXO
	err := s.db.View(func(tx *bbolt.Tx) error {
		list, err := get[[]utxo.UTXO](tx, bucketUTXOs, recordKey(address))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out = *list
		return nil
	})
	return out, err
}

// DeleteUTXOs drops the persisted cache of address. It is used on account
// wipe only.
func (s *BoltStore) DeleteUTXOs(address string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUTXOs).Delete(recordKey(address))
	})
}

// ---------------------------------------------------------------------------
// Asset ownership rows
// ---------------------------------------------------------------------------

// PutAsset inserts or replaces an ownership row.
func (s *BoltStore) PutAsset(a *Asset) error {
	if a == nil || a.ID == "" || a.Owner == "" {
		return fmt.Errorf("%w: asset, id or owner", ErrNilParam)
	}
	if !a.Kind.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, a.Kind)
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketAssets, recordKey(string(a.Kind), a.Owner, a.ID), a)
	})
}

// GetAsset returns one ownership row, deleted or not.
func (s *BoltStore) GetAsset(kind AssetKind, owner, id string) (*Asset, error) {
	var a *Asset
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		a, err = get[Asset](tx, bucketAssets, recordKey(string(kind), owner, id))
		return err
	})
	return a, err
}

// ListAssets returns the owner's rows of kind. Soft-deleted rows are
// included only when includeDeleted is set.
func (s *BoltStore) ListAssets(kind AssetKind, owner string, includeDeleted bool) ([]*Asset, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	var out []*Asset
	err := s.db.View(func(tx *bbolt.Tx) error {
		all, err := scan[Asset](tx, bucketAssets, recordKey(string(kind), owner))
		if err != nil {
			return err
		}
		for _, a := range all {
			if includeDeleted || !a.IsDeleted {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// SoftDeleteAsset hides an ownership row.
func (s *BoltStore) SoftDeleteAsset(kind AssetKind, owner, id string) error {
	return s.setAssetDeleted(kind, owner, id, true)
}

// RestoreAsset un-hides an ownership row.
func (s *BoltStore) RestoreAsset(kind AssetKind, owner, id string) error {
	return s.setAssetDeleted(kind, owner, id, false)
}

func (s *BoltStore) setAssetDeleted(kind AssetKind, owner, id string, deleted bool) error {
	key := recordKey(string(kind), owner, id)
	return s.db.Update(func(tx *bbolt.Tx) error {
		a, err := get[Asset](tx, bucketAssets, key)
		if err != nil {
			return err
		}
		a.IsDeleted = deleted
		a.UpdatedAt = time.Now().UTC()
		return put(tx, bucketAssets, key, a)
	})
}

// ---------------------------------------------------------------------------
// Multisig address book
// ---------------------------------------------------------------------------

// PutMultiSig inserts or replaces an address-book row for owner.
func (s *BoltStore) PutMultiSig(owner string, w *multisig.Wallet) error {
	if owner == "" || w == nil || w.Address == "" {
		return fmt.Errorf("%w: owner or wallet", ErrNilParam)
	}
	rec := &MultiSigRecord{Owner: owner, Wallet: *w, UpdatedAt: time.Now().UTC()}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketMultiSig, recordKey(owner, w.Address), rec)
	})
}

// GetMultiSig returns one address-book row, deleted or not.
func (s *BoltStore) GetMultiSig(owner, address string) (*multisig.Wallet, error) {
	var w *multisig.Wallet
	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, err := get[MultiSigRecord](tx, bucketMultiSig, recordKey(owner, address))
		if err != nil {
			return err
		}
		w = &rec.Wallet
		return nil
	})
	return w, err
}

// ListMultiSig returns owner's multisig wallets. Soft-deleted rows are
// included only when includeDeleted is set.
func (s *BoltStore) ListMultiSig(owner string, includeDeleted bool) ([]*multisig.Wallet, error) {
	var out []*multisig.Wallet
	err := s.db.View(func(tx *bbolt.Tx) error {
		recs, err := scan[MultiSigRecord](tx, bucketMultiSig, recordKey(owner))
		if err != nil {
			return err
		}
		for _, r := range recs {
			if includeDeleted || !r.Wallet.IsDeleted {
				out = append(out, &r.Wallet)
			}
		}
		return nil
	})
	return out, err
}

// SoftDeleteMultiSig hides an address-book row.
func (s *BoltStore) SoftDeleteMultiSig(owner, address string) error {
	return s.setMultiSigDeleted(owner, address, true)
}

// RestoreMultiSig un-hides an address-book row.
func (s *BoltStore) RestoreMultiSig(owner, address string) error {
	return s.setMultiSigDeleted(owner, address, false)
}

func (s *BoltStore) setMultiSigDeleted(owner, address string, deleted bool) error {
	key := recordKey(owner, address)
	return s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := get[MultiSigRecord](tx, bucketMultiSig, key)
		if err != nil {
			return err
		}
		rec.Wallet.IsDeleted = deleted
		rec.UpdatedAt = time.Now().UTC()
		return put(tx, bucketMultiSig, key, rec)
	})
}
