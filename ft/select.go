package ft

import (
	"context"
	"fmt"
	"sort"

	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
)

const opSelect = "ft.select"

// Select picks token outputs largest first until their balance covers
// amount. A balance that only suffices across more than MaxInputs outputs
// is MergeRequired.
func Select(candidates []utxo.FTUTXO, amount uint64) ([]utxo.FTUTXO, uint64, error) {
	if amount == 0 {
		return nil, 0, txerr.New(txerr.Validation, opSelect, fmt.Errorf("%w: amount must be positive", ErrInvalidParams))
	}
	sorted := make([]utxo.FTUTXO, 0, len(candidates))
	var all uint64
	for _, u := range candidates {
		if u.Balance > 0 {
			sorted = append(sorted, u)
			all += u.Balance
		}
	}
	if len(sorted) == 0 {
		return nil, 0, txerr.New(txerr.ZeroBalance, opSelect, ErrNoTokens)
	}
	if all < amount {
		return nil, 0, txerr.New(txerr.InsufficientFunds, opSelect,
			fmt.Errorf("%w: need %d, have %d", ErrInsufficientFT, amount, all))
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Balance > sorted[j].Balance })

	var total uint64
	for i, u := range sorted {
		total += u.Balance
		if total >= amount {
			if i+1 > MaxInputs {
				break
			}
			return sorted[:i+1], total, nil
		}
	}
	return nil, 0, txerr.New(txerr.MergeRequired, opSelect,
		fmt.Errorf("%w: %d outputs needed, limit %d", ErrMergeRequired, countNeeded(sorted, amount), MaxInputs))
}

func countNeeded(sorted []utxo.FTUTXO, amount uint64) int {
	var total uint64
	for i, u := range sorted {
		total += u.Balance
		if total >= amount {
			return i + 1
		}
	}
	return len(sorted)
}

// FetchInputs lists the account's outputs of contractID and selects from
// them.
func FetchInputs(ctx context.Context, chain network.TBCService, contractID, address string, amount uint64) ([]utxo.FTUTXO, uint64, error) {
	list, err := chain.FetchFTUTXOs(ctx, contractID, address)
	if err != nil {
		return nil, 0, txerr.New(txerr.Unknown, opSelect, err)
	}
	return Select(list, amount)
}
