package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"

	_ "github.com/mattn/go-sqlite3"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS history (
	txid        TEXT    NOT NULL,
	address     TEXT    NOT NULL,
	kind        TEXT    NOT NULL,
	contract_id TEXT    NOT NULL DEFAULT '',
	amount      INTEGER NOT NULL,
	fee         INTEGER NOT NULL DEFAULT 0,
	status      TEXT    NOT NULL DEFAULT '',
	timestamp   INTEGER NOT NULL,
	PRIMARY KEY (txid, address, kind)
);
CREATE INDEX IF NOT EXISTS history_kind_address_ts ON history (kind, address, timestamp DESC);
`

// HistoryKind is the type of a history row.
type HistoryKind string

// History kinds.
const (
	HistoryTBC      HistoryKind = "tbc"
	HistoryBTC      HistoryKind = "btc"
	HistoryFT       HistoryKind = "ft"
	HistoryNFT      HistoryKind = "nft"
	HistoryMultiSig HistoryKind = "multisig"
)

func (k HistoryKind) valid() bool {
	switch k {
	case HistoryTBC, HistoryBTC, HistoryFT, HistoryNFT, HistoryMultiSig:
		return true
	}
	return false
}

// HistoryRow is one transaction as seen from one address. Amount is
// signed: negative for value leaving the address.
type HistoryRow struct {
	TxID       string
	Address    string
	Kind       HistoryKind
	ContractID string
	Amount     int64
	Fee        uint64
	Status     string
	Timestamp  time.Time
}

// HistoryDB stores history rows in sqlite.
type HistoryDB struct {
	db *sql.DB
}

// OpenHistoryDB opens or creates the history database at path.
func OpenHistoryDB(path string) (*HistoryDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create history schema: %w", err)
	}
	log.Store.Debug().Str("path", path).Msg("history db opened")
	return &HistoryDB{db: db}, nil
}

// Close closes the database.
func (h *HistoryDB) Close() error { return h.db.Close() }

// PutHistory appends a row, or updates it when (TxID, Address, Kind)
// already exists.
func (h *HistoryDB) PutHistory(row *HistoryRow) error {
	if row == nil || row.TxID == "" || row.Address == "" {
		return fmt.Errorf("%w: row, txid or address", ErrNilParam)
	}
	if !row.Kind.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, row.Kind)
	}
	ts := row.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := h.db.Exec(`
INSERT INTO history (txid, address, kind, contract_id, amount, fee, status, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (txid, address, kind) DO UPDATE SET
	contract_id = excluded.contract_id,
	amount      = excluded.amount,
	fee         = excluded.fee,
	status      = excluded.status,
	timestamp   = excluded.timestamp`,
		row.TxID, row.Address, string(row.Kind), row.ContractID, row.Amount, int64(row.Fee), row.Status, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put history %s: %w", row.TxID, err)
	}
	return nil
}

// GetHistory returns one row.
func (h *HistoryDB) GetHistory(txid, address string, kind HistoryKind) (*HistoryRow, error) {
	row := h.db.QueryRow(`
SELECT txid, address, kind, contract_id, amount, fee, status, timestamp
FROM history WHERE txid = ? AND address = ? AND kind = ?`, txid, address, string(kind))
	r, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: history %s", ErrNotFound, txid)
	}
	return r, err
}

// ListHistory returns the address's rows of kind, newest first. A
// non-positive limit returns every row.
func (h *HistoryDB) ListHistory(kind HistoryKind, address string, limit, offset int) ([]*HistoryRow, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.Query(`
SELECT txid, address, kind, contract_id, amount, fee, status, timestamp
FROM history WHERE kind = ? AND address = ?
ORDER BY timestamp DESC, txid
LIMIT ? OFFSET ?`, string(kind), address, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list history: %w", err)
	}
	defer rows.Close()

	var out []*HistoryRow
	for rows.Next() {
		r, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(s scanner) (*HistoryRow, error) {
	var (
		r    HistoryRow
		kind string
		fee  int64
		ts   int64
	)
	if err := s.Scan(&r.TxID, &r.Address, &kind, &r.ContractID, &r.Amount, &fee, &r.Status, &ts); err != nil {
		return nil, err
	}
	r.Kind = HistoryKind(kind)
	r.Fee = uint64(fee)
	r.Timestamp = time.UnixMilli(ts).UTC()
	return &r, nil
}
