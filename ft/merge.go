package ft

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/lightningnetwork/lnd/clock"
)

// Merge pass defaults.
const (
	DefaultMergeIterations = 10
	DefaultMergeDelay      = 3 * time.Second
)

// BuildMerge combines up to MaxInputs of the largest token outputs among
// candidates into a single output back to the account.
func BuildMerge(ctx context.Context, acct *wallet.AccountContext, chain network.TBCService, contractID string,
	candidates []utxo.FTUTXO, password string, policy fee.NativePolicy) (*tx.Result, error) {

	sorted := make([]utxo.FTUTXO, 0, len(candidates))
	for _, u := range candidates {
		if u.Balance > 0 {
			sorted = append(sorted, u)
		}
	}
	if len(sorted) < 2 {
		return nil, txerr.New(txerr.Validation, opMerge, fmt.Errorf("%w: %d outputs, nothing to merge", ErrInvalidParams, len(sorted)))
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Balance > sorted[j].Balance })
	if len(sorted) > MaxInputs {
		sorted = sorted[:MaxInputs]
	}

	var total uint64
	for _, u := range sorted {
		total += u.Balance
	}
	owner, err := tx.P2PKHLock(acct.Address())
	if err != nil {
		return nil, txerr.New(txerr.Validation, opMerge, err)
	}
	lock, err := CodeLock(contractID, total, owner)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opMerge, err)
	}
	outs := []*transaction.TransactionOutput{{Satoshis: CodeOutputValue, LockingScript: lock}}
	return spend(ctx, acct, chain, contractID, sorted, outs, password, policy)
}

// Submitter broadcasts a built transaction and reconciles the account's
// cache.
type Submitter interface {
	Submit(ctx context.Context, acct *wallet.AccountContext, res *tx.Result) (string, error)
}

// Service runs token transfers with the merge-and-retry recovery.
type Service struct {
	chain         network.TBCService
	submitter     Submitter
	clock         clock.Clock
	maxIterations int
	delay         time.Duration
}

// NewService creates a Service. Zero maxIterations or delay use the
// defaults; a nil clk uses the wall clock.
func NewService(chain network.TBCService, submitter Submitter, clk clock.Clock, maxIterations int, delay time.Duration) *Service {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMergeIterations
	}
	if delay <= 0 {
		delay = DefaultMergeDelay
	}
	return &Service{chain: chain, submitter: submitter, clock: clk, maxIterations: maxIterations, delay: delay}
}

// Transfer builds a token payment. When the balance is too fragmented it
// runs the merge pass, broadcasting each merge, and then builds once more.
func (s *Service) Transfer(ctx context.Context, acct *wallet.AccountContext, p *TransferParams) (*tx.Result, error) {
	res, err := BuildTransfer(ctx, acct, s.chain, p)
	if !txerr.Is(err, txerr.MergeRequired) {
		return res, err
	}
	log.FT.Info().Str("contract", p.ContractID).Msg("token balance fragmented, merging")

	if err := s.Merge(ctx, acct, p.ContractID, p.Amount, p.Password, p.Policy); err != nil {
		return nil, err
	}
	return BuildTransfer(ctx, acct, s.chain, p)
}

// Merge consolidates the account's outputs of contractID until amount can
// be spent within MaxInputs inputs.
func (s *Service) Merge(ctx context.Context, acct *wallet.AccountContext, contractID string, amount uint64, password string, policy fee.NativePolicy) error {
	from := acct.Address()
	step := func(ctx context.Context, iteration int) (bool, error) {
		list, err := s.chain.FetchFTUTXOs(ctx, contractID, from)
		if err != nil {
			return false, err
		}
		if _, _, err := Select(list, amount); err == nil {
			return true, nil
		} else if !txerr.Is(err, txerr.MergeRequired) {
			return false, err
		}

		res, err := BuildMerge(ctx, acct, s.chain, contractID, list, password, policy)
		if err != nil {
			return false, err
		}
		txid, err := s.submitter.Submit(ctx, acct, res)
		if txerr.Is(err, txerr.Conflict) {
			// The fee inputs were stale; the next iteration builds from the
			// network's listing.
			fresh, lerr := s.chain.ListUnspent(ctx, from, 0)
			if lerr != nil {
				return false, lerr
			}
			acct.UTXOs.Refresh(fresh)
			log.FT.Info().Int("iteration", iteration).Int("listed", len(fresh)).Msg("merge broadcast conflicted, cache refreshed")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		log.FT.Info().Int("iteration", iteration).Str("txid", txid).Int("inputs", len(res.UTXOs)).Msg("merge broadcast")
		return false, nil
	}
	return MergeWithBackoff(ctx, s.clock, step, s.maxIterations, s.delay)
}
