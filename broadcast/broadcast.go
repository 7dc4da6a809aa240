// Package broadcast submits signed transactions and reconciles the local
// UTXO cache with what they consumed and produced.
package broadcast

import (
	"context"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
)

const opSubmit = "broadcast.submit"

// Chain lists outputs and accepts transactions.
type Chain interface {
	network.ChainReader
	network.Broadcaster
}

// CacheSaver persists an account's cache after it changes.
type CacheSaver interface {
	SaveUTXOs(address string, utxos []utxo.UTXO) error
}

// RebuildFunc builds the transaction again from the refreshed cache.
type RebuildFunc func(ctx context.Context) (*tx.Result, error)

// Reconciler broadcasts transactions for one chain.
type Reconciler struct {
	chain Chain
	saver CacheSaver
}

// NewReconciler creates a Reconciler. saver may be nil.
func NewReconciler(chain Chain, saver CacheSaver) *Reconciler {
	return &Reconciler{chain: chain, saver: saver}
}

// Submit broadcasts res and, on success, marks its inputs spent and adds
// its change to the account's cache. Spent entries stay in the cache as
// history. A failed broadcast leaves the cache untouched.
func (r *Reconciler) Submit(ctx context.Context, acct *wallet.AccountContext, res *tx.Result) (string, error) {
	if acct == nil || res == nil || res.TxHex == "" {
		return "", txerr.New(txerr.Validation, opSubmit, fmt.Errorf("%w: account or transaction", ErrInvalidParams))
	}
	txid, err := r.chain.BroadcastTx(ctx, res.TxHex)
	if err != nil {
		log.Broadcast.Warn().Str("txid", res.TxID).Str("kind", txerr.KindOf(err).String()).Err(err).Msg("broadcast rejected")
		return "", err
	}

	marked := acct.UTXOs.MarkSpent(res.UTXOs)
	if res.Change != nil {
		acct.UTXOs.Add(*res.Change)
	}
	r.save(acct)

	log.Broadcast.Info().
		Str("txid", txid).
		Int("spent", marked).
		Bool("change", res.Change != nil).
		Uint64("fee", res.Fee).
		Msg("transaction broadcast")
	return txid, nil
}

// SubmitWithRetry submits res. When the broadcast is rejected as a
// Conflict it refreshes the account's cache from the network, rebuilds
// through rebuild and submits exactly once more. A second failure of any
// kind is returned as is. Other errors are never retried.
func (r *Reconciler) SubmitWithRetry(ctx context.Context, acct *wallet.AccountContext, res *tx.Result, rebuild RebuildFunc) (string, error) {
	txid, err := r.Submit(ctx, acct, res)
	if err == nil || !txerr.Is(err, txerr.Conflict) || rebuild == nil {
		return txid, err
	}

	log.Broadcast.Info().Str("address", acct.Address()).Msg("conflict on broadcast, refreshing outputs and retrying once")
	if err := r.Refresh(ctx, acct); err != nil {
		return "", err
	}
	next, err := rebuild(ctx)
	if err != nil {
		if txerr.KindOf(err) != txerr.Unknown {
			return "", err
		}
		return "", txerr.New(txerr.Unknown, opSubmit, fmt.Errorf("%w: %w", ErrRetryFailed, err))
	}
	return r.Submit(ctx, acct, next)
}

// Refresh folds the network's listing of the account's outputs into its
// cache.
func (r *Reconciler) Refresh(ctx context.Context, acct *wallet.AccountContext) error {
	fresh, err := r.chain.ListUnspent(ctx, acct.Address(), 0)
	if err != nil {
		return txerr.New(txerr.Unknown, opSubmit, fmt.Errorf("refresh %s: %w", acct.Address(), err))
	}
	acct.UTXOs.Refresh(fresh)
	r.save(acct)
	log.Broadcast.Debug().Str("address", acct.Address()).Int("listed", len(fresh)).Msg("cache refreshed")
	return nil
}

func (r *Reconciler) save(acct *wallet.AccountContext) {
	if r.saver == nil {
		return
	}
	if err := r.saver.SaveUTXOs(acct.Address(), acct.UTXOs.Snapshot()); err != nil {
		log.Broadcast.Warn().Str("address", acct.Address()).Err(err).Msg("persisting utxo cache failed")
	}
}
