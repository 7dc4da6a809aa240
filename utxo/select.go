package utxo

import (
	"context"
	"fmt"
	"sort"

	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/shopspring/decimal"
)

// Selection is the chosen input set.
type Selection struct {
	Inputs []UTXO
	Total  uint64
}

// SelectFunc picks inputs from candidates.
type SelectFunc func(candidates []UTXO) (*Selection, error)

// SelectBTC picks inputs for a Bitcoin-style payment of amount at rate
// (smallest units per byte). A single output covering amount plus the
// one-input, two-output fee wins outright; otherwise outputs are taken
// largest first while the target grows by one input's fee per pick.
func SelectBTC(candidates []UTXO, amount uint64, rate decimal.Decimal) (*Selection, error) {
	if amount == 0 {
		return nil, txerr.New(txerr.Validation, "utxo.select", ErrInvalidAmount)
	}
	sorted := sortedCopy(candidates, func(a, b UTXO) bool { return a.Value > b.Value })
	if len(sorted) == 0 {
		return nil, txerr.New(txerr.ZeroBalance, "utxo.select", ErrZeroBalance)
	}

	single := amount + fee.BTCFee(1, 2, rate)
	for _, u := range sorted {
		if u.Value >= single {
			return &Selection{Inputs: []UTXO{u}, Total: u.Value}, nil
		}
	}

	perInput := fee.BTCInputFee(rate)
	target := amount + fee.BTCFee(0, 2, rate)
	sel := &Selection{}
	for _, u := range sorted {
		sel.Inputs = append(sel.Inputs, u)
		sel.Total += u.Value
		target += perInput
		if sel.Total >= target {
			return sel, nil
		}
	}
	return nil, txerr.New(txerr.InsufficientFunds, "utxo.select",
		fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, target, sel.Total))
}

// SelectNative picks inputs for a native-chain payment of amount, which
// already includes the caller's fee. An output of exactly amount is
// preferred, then the smallest single output covering it, then smallest
// first accumulation.
func SelectNative(candidates []UTXO, amount uint64) (*Selection, error) {
	return SelectNativeFunc(candidates, func(int) uint64 { return amount })
}

// NeedFunc returns the value a selection of n inputs must cover, fee
// included.
type NeedFunc func(inputs int) uint64

// SelectNativeFunc is SelectNative for a target that grows with the
// number of inputs, as a size-based fee does. Single outputs are matched
// against need(1); accumulation stops at the first n whose total covers
// need(n).
func SelectNativeFunc(candidates []UTXO, need NeedFunc) (*Selection, error) {
	single := need(1)
	if single == 0 {
		return nil, txerr.New(txerr.Validation, "utxo.select", ErrInvalidAmount)
	}
	sorted := sortedCopy(candidates, func(a, b UTXO) bool { return a.Value < b.Value })
	if len(sorted) == 0 {
		return nil, txerr.New(txerr.ZeroBalance, "utxo.select", ErrZeroBalance)
	}

	for _, u := range sorted {
		if u.Value == single {
			return &Selection{Inputs: []UTXO{u}, Total: u.Value}, nil
		}
	}
	for _, u := range sorted {
		if u.Value > single {
			return &Selection{Inputs: []UTXO{u}, Total: u.Value}, nil
		}
	}

	sel := &Selection{}
	for _, u := range sorted {
		sel.Inputs = append(sel.Inputs, u)
		sel.Total += u.Value
		if sel.Total >= need(len(sel.Inputs)) {
			return sel, nil
		}
	}
	return nil, txerr.New(txerr.InsufficientFunds, "utxo.select",
		fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, need(len(sel.Inputs)), sel.Total))
}

// FetchFunc lists the account's outputs from the network.
type FetchFunc func(ctx context.Context) ([]UTXO, error)

// SelectWithRefresh selects from the cache first. A zero-balance or
// insufficient result against the cache is not trusted: the network listing
// is folded into the cache and selection runs once more.
func SelectWithRefresh(ctx context.Context, cache *Cache, fetch FetchFunc, sel SelectFunc) (*Selection, error) {
	if cached := cache.Available(); len(cached) > 0 {
		s, err := sel(cached)
		if err == nil {
			return s, nil
		}
		if k := txerr.KindOf(err); k != txerr.ZeroBalance && k != txerr.InsufficientFunds {
			return nil, err
		}
	}

	fresh, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("utxo: refresh: %w", err)
	}
	cache.Refresh(fresh)
	return sel(cache.Available())
}

func sortedCopy(in []UTXO, less func(a, b UTXO) bool) []UTXO {
	out := Unspent(in)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
