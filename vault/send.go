package vault

import (
	"context"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/amount"
	"github.com/bitfsorg/tbcwallet-go/btctx"
	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/ft"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/paymail"
	"github.com/bitfsorg/tbcwallet-go/store"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
)

const opSend = "vault.send"

// Asset selects what a SendRequest moves.
type Asset int

// Assets.
const (
	AssetTBC Asset = iota
	AssetBTC
	AssetFT
)

func (a Asset) String() string {
	switch a {
	case AssetTBC:
		return "tbc"
	case AssetBTC:
		return "btc"
	case AssetFT:
		return "ft"
	}
	return fmt.Sprintf("asset(%d)", int(a))
}

func (a Asset) historyKind() store.HistoryKind {
	switch a {
	case AssetBTC:
		return store.HistoryBTC
	case AssetFT:
		return store.HistoryFT
	}
	return store.HistoryTBC
}

// SendRequest is a payment as the user typed it.
type SendRequest struct {
	Asset      Asset
	ContractID string // AssetFT only
	To         string // address or alias@domain
	Amount     string // human units
	Password   string
}

// PendingTransaction is a signed, unsent transaction and the exact
// outputs it consumes. It is consumed by one Submit.
type PendingTransaction struct {
	RequestID uint64
	Request   SendRequest
	Units     uint64 // amount in smallest units
	TxHex     string
	TxID      string
	Fee       uint64
	Info      fee.Info
	UTXOs     []utxo.UTXO

	result *tx.Result
}

func newPending(req SendRequest, units uint64, res *tx.Result) *PendingTransaction {
	return &PendingTransaction{
		Request: req,
		Units:   units,
		TxHex:   res.TxHex,
		TxID:    res.TxID,
		Fee:     res.Fee,
		Info:    res.Info,
		UTXOs:   res.UTXOs,
		result:  res,
	}
}

// Estimate builds and signs req against acct's current cache without
// broadcasting. A fragmented token balance is reported as MergeRequired
// rather than merged, since merging broadcasts.
func (v *Vault) Estimate(ctx context.Context, acct *wallet.AccountContext, req SendRequest) (*PendingTransaction, error) {
	units, res, err := v.build(ctx, acct, req, false)
	if err != nil {
		return nil, err
	}
	return newPending(req, units, res), nil
}

// Submit broadcasts p. On a conflict the cache is refreshed and the
// request rebuilt and submitted once more.
func (v *Vault) Submit(ctx context.Context, acct *wallet.AccountContext, p *PendingTransaction) (string, error) {
	if p == nil || p.result == nil {
		return "", txerr.New(txerr.Validation, opSend, ErrNoPending)
	}
	var txid string
	err := v.withWriteLock(func() error {
		var err error
		txid, err = v.submit(ctx, acct, p.Request, p.Units, p.result)
		return err
	})
	return txid, err
}

// Send builds req, merging fragmented token balances first, and submits
// it.
func (v *Vault) Send(ctx context.Context, acct *wallet.AccountContext, req SendRequest) (string, error) {
	var txid string
	err := v.withWriteLock(func() error {
		units, res, err := v.build(ctx, acct, req, true)
		if err != nil {
			return err
		}
		txid, err = v.submit(ctx, acct, req, units, res)
		return err
	})
	return txid, err
}

func (v *Vault) submit(ctx context.Context, acct *wallet.AccountContext, req SendRequest, units uint64, res *tx.Result) (string, error) {
	r, err := v.reconciler(acct)
	if err != nil {
		return "", err
	}
	sent := res
	txid, err := r.SubmitWithRetry(ctx, acct, res, func(ctx context.Context) (*tx.Result, error) {
		_, next, err := v.build(ctx, acct, req, true)
		if next != nil {
			sent = next
		}
		return next, err
	})
	if err != nil {
		return "", err
	}
	v.record(&store.HistoryRow{
		TxID:       txid,
		Address:    acct.Address(),
		Kind:       req.Asset.historyKind(),
		ContractID: req.ContractID,
		Amount:     -int64(units),
		Fee:        sent.Fee,
		Status:     "completed",
	})
	return txid, nil
}

// build validates req and dispatches it to the builder of its asset.
func (v *Vault) build(ctx context.Context, acct *wallet.AccountContext, req SendRequest, merge bool) (uint64, *tx.Result, error) {
	if acct == nil {
		return 0, nil, txerr.New(txerr.Validation, opSend, fmt.Errorf("%w: nil account", ErrInvalidRequest))
	}
	if (req.Asset == AssetBTC) != acct.Type.IsBTC() {
		return 0, nil, txerr.New(txerr.Validation, opSend,
			fmt.Errorf("%w: %s account cannot send %s", ErrInvalidRequest, acct.Type, req.Asset))
	}

	decimals := int32(amount.TBCDecimals)
	switch req.Asset {
	case AssetBTC:
		decimals = amount.BTCDecimals
	case AssetFT:
		if err := ft.ValidateContractID(req.ContractID); err != nil {
			return 0, nil, txerr.New(txerr.Validation, opSend, err)
		}
		info, err := v.deps.TBC.FetchFTInfo(ctx, req.ContractID)
		if err != nil {
			return 0, nil, txerr.New(txerr.Unknown, opSend, fmt.Errorf("token info %s: %w", req.ContractID, err))
		}
		decimals = info.Decimals
	case AssetTBC:
	default:
		return 0, nil, txerr.New(txerr.Validation, opSend, fmt.Errorf("%w: %s", ErrInvalidRequest, req.Asset))
	}
	units, err := amount.ToUnits(req.Amount, decimals)
	if err != nil {
		return 0, nil, txerr.New(txerr.Validation, opSend, err)
	}
	to, err := v.recipient(ctx, req, units)
	if err != nil {
		return 0, nil, err
	}

	var res *tx.Result
	switch req.Asset {
	case AssetTBC:
		res, err = tx.BuildTBCTransfer(ctx, acct, v.deps.TBC, &tx.TransferParams{
			To: to, Amount: units, Password: req.Password, Policy: v.policy(),
		})
	case AssetBTC:
		if v.deps.BTC == nil {
			return 0, nil, fmt.Errorf("%w: BTC chain service", ErrOffline)
		}
		res, err = btctx.BuildTransfer(ctx, acct, v.deps.BTC, &btctx.TransferParams{
			To: to, Amount: units, Password: req.Password, FeeTier: v.cfg.BTCFeeTier,
		})
	case AssetFT:
		p := &ft.TransferParams{ContractID: req.ContractID, To: to, Amount: units, Password: req.Password, Policy: v.policy()}
		if merge {
			res, err = v.ft.Transfer(ctx, acct, p)
		} else {
			res, err = ft.BuildTransfer(ctx, acct, v.deps.TBC, p)
		}
	}
	if err != nil {
		return 0, nil, err
	}
	log.Wallet.Debug().
		Stringer("asset", req.Asset).
		Str("txid", res.TxID).
		Uint64("amount", units).
		Uint64("fee", res.Fee).
		Int("inputs", len(res.UTXOs)).
		Msg("transaction built")
	return units, res, nil
}

// recipient resolves alias@domain recipients of native payments.
func (v *Vault) recipient(ctx context.Context, req SendRequest, units uint64) (string, error) {
	if !paymail.IsAlias(req.To) {
		return req.To, nil
	}
	if req.Asset == AssetBTC {
		return "", txerr.New(txerr.Validation, opSend, fmt.Errorf("%w: aliases resolve to native addresses only", ErrInvalidRequest))
	}
	if v.deps.Resolver == nil {
		return "", fmt.Errorf("%w: alias resolver", ErrOffline)
	}
	var announce uint64
	if req.Asset == AssetTBC {
		announce = units
	}
	to, err := v.deps.Resolver.ResolveAmount(ctx, req.To, announce)
	if err != nil {
		return "", txerr.New(txerr.Validation, opSend, err)
	}
	return to, nil
}

func (v *Vault) record(row *store.HistoryRow) {
	row.Timestamp = v.deps.Clock.Now()
	if err := v.history.PutHistory(row); err != nil {
		log.Wallet.Warn().Str("txid", row.TxID).Err(err).Msg("recording history failed")
	}
}
