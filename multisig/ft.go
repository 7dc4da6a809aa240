package multisig

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/ft"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

const opBuildFT = "multisig.build_ft"

// FTParams describes a token payment out of a multisig wallet.
type FTParams struct {
	Wallet     *Wallet
	ContractID string
	To         string
	Amount     uint64 // token units
	Password   string
	Policy     fee.NativePolicy
}

// BuildFT assembles an unsigned token payment from the wallet's token
// outputs and signs it with the account's key. Native coin for the fee
// comes from the wallet's own outputs, so every input is a multisig input.
// Fragmented balances are reported as MergeRequired.
func BuildFT(ctx context.Context, acct *wallet.AccountContext, chain network.TBCService, p *FTParams) (*Transaction, error) {
	if acct == nil || chain == nil || p == nil {
		return nil, txerr.New(txerr.Validation, opBuildFT, fmt.Errorf("%w: account, chain or params", ErrInvalidParams))
	}
	if err := p.Wallet.Validate(); err != nil {
		return nil, txerr.New(txerr.Validation, opBuildFT, err)
	}
	if p.Amount == 0 {
		return nil, txerr.New(txerr.Validation, opBuildFT, fmt.Errorf("%w: amount must be positive", ErrInvalidParams))
	}
	if err := ft.ValidateContractID(p.ContractID); err != nil {
		return nil, txerr.New(txerr.Validation, opBuildFT, err)
	}
	toOwner, err := tx.LockForAddress(p.To)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuildFT, err)
	}
	w := p.Wallet
	lock, err := w.Lock()
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuildFT, err)
	}
	policy := defaultPolicy(p.Policy)

	inputs, total, err := ft.FetchInputs(ctx, chain, p.ContractID, w.Address, p.Amount)
	if err != nil {
		return nil, err
	}
	outs, err := ft.TokenOutputs(p.ContractID, p.Amount, total, toOwner, lock)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuildFT, err)
	}
	ancestors, err := ft.FetchAncestors(ctx, chain, p.ContractID, inputs)
	if err != nil {
		return nil, txerr.New(txerr.Unknown, opBuildFT, err)
	}
	var tokenValue, outValue uint64
	for i, a := range ancestors {
		_, _, owner, _ := ft.ParseCodeLock(a.Source.LockingScript)
		if !bytes.Equal(*owner, *lock) {
			return nil, txerr.New(txerr.Validation, opBuildFT,
				fmt.Errorf("%w: %s is not held by %s", ft.ErrInvalidCode, inputs[i].Outpoint(), w.Address))
		}
		tokenValue += a.Source.Satoshis
	}
	for _, o := range outs {
		outValue += o.Satoshis
	}

	m, n := w.Required, len(w.PubKeys)
	estimate := func(feeInputs int) uint64 {
		size := ft.EstimateSize(ancestors, feeInputs, len(outs)+1) + (len(ancestors)+feeInputs)*unlockOverhead(m, n)
		return policy.Fee(size)
	}
	// Token inputs already carry tokenValue; fee inputs cover the rest.
	need := func(feeInputs int) uint64 {
		if total := outValue + estimate(feeInputs); total > tokenValue {
			return total - tokenValue
		}
		return 1
	}
	sel, err := selectWalletOutputs(ctx, chain, lock, need)
	if err != nil {
		return nil, err
	}
	txFee := estimate(len(sel.Inputs))
	inValue := tokenValue + sel.Total
	if inValue < outValue+txFee {
		return nil, txerr.New(txerr.InsufficientFunds, opBuildFT,
			fmt.Errorf("%w: need %d, have %d", tx.ErrInsufficientFunds, outValue+txFee, inValue))
	}

	sdkTx := transaction.NewTransaction()
	sources := make([]*transaction.TransactionOutput, 0, len(inputs)+len(sel.Inputs))
	proofs := make([][]byte, 0, cap(sources))
	for i, u := range inputs {
		if err := tx.AddInput(sdkTx, u.TxID, u.Vout); err != nil {
			return nil, txerr.New(txerr.Validation, opBuildFT, err)
		}
		sources = append(sources, ancestors[i].Source)
		proofs = append(proofs, ancestors[i].Proof)
	}
	for _, u := range sel.Inputs {
		if err := tx.AddInput(sdkTx, u.TxID, u.Vout); err != nil {
			return nil, txerr.New(txerr.Validation, opBuildFT, err)
		}
		sources = append(sources, &transaction.TransactionOutput{Satoshis: u.Value, LockingScript: lock})
		proofs = append(proofs, nil)
	}
	for _, o := range outs {
		sdkTx.AddOutput(o)
	}
	if change := inValue - outValue - txFee; change > fee.DustLimit {
		sdkTx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: lock})
	}

	t := newTransaction(w, sdkTx, sources, proofs, p.ContractID, []Recipient{{Address: p.To, Amount: p.Amount}}, time.Now())
	if err := Sign(t, acct, p.Password); err != nil {
		return nil, err
	}
	log.MultiSig.Info().
		Str("unsigned_txid", t.UnsignedTxID).
		Str("address", w.Address).
		Str("contract", p.ContractID).
		Int("token_inputs", len(inputs)).
		Uint64("amount", p.Amount).
		Msg("multisig token transaction built")
	return t, nil
}

// withProof appends a hex ancestor proof to a multisig unlock.
func withProof(unlock *script.Script, proofHex string) (*script.Script, error) {
	proof, err := hex.DecodeString(proofHex)
	if err != nil {
		return nil, fmt.Errorf("%w: proof: %w", ErrInvalidParams, err)
	}
	return ft.CodeUnlock(unlock, proof)
}
