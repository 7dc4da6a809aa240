package ft

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

const opTransfer = "ft.transfer"

// codeOverhead is the extra script size of a token output over a plain one.
const codeOverhead = codePrefixLen

// TransferParams describes a token payment.
type TransferParams struct {
	ContractID string
	To         string // P2PKH or multisig address
	Amount     uint64 // token units
	Password   string
	Policy     fee.NativePolicy // zero value uses fee.DefaultNativePolicy()
}

// BuildTransfer builds and signs a token payment from the account. The
// token inputs come from the chain listing and may not exceed MaxInputs;
// when they would, the error is tagged MergeRequired. Native coin for the
// token outputs and the fee comes from the account's cache. A multisig
// recipient gets a token output locked to the multisig script.
func BuildTransfer(ctx context.Context, acct *wallet.AccountContext, chain network.TBCService, p *TransferParams) (*tx.Result, error) {
	if acct == nil || chain == nil || p == nil {
		return nil, txerr.New(txerr.Validation, opTransfer, fmt.Errorf("%w: account, chain or params", ErrInvalidParams))
	}
	if acct.Type.IsBTC() {
		return nil, txerr.New(txerr.Validation, opTransfer,
			fmt.Errorf("%w: %s account holds no tokens", ErrInvalidParams, acct.Type))
	}
	if p.Amount == 0 {
		return nil, txerr.New(txerr.Validation, opTransfer, fmt.Errorf("%w: amount must be positive", ErrInvalidParams))
	}
	if err := ValidateContractID(p.ContractID); err != nil {
		return nil, txerr.New(txerr.Validation, opTransfer, err)
	}
	toOwner, err := tx.LockForAddress(p.To)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opTransfer, err)
	}
	from := acct.Address()
	fromOwner, err := tx.P2PKHLock(from)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opTransfer, err)
	}
	if tx.IsMultiSigAddress(p.To) {
		log.FT.Debug().Str("to", p.To).Msg("token transfer to multisig owner")
	}

	inputs, total, err := FetchInputs(ctx, chain, p.ContractID, from, p.Amount)
	if err != nil {
		return nil, err
	}
	outs, err := TokenOutputs(p.ContractID, p.Amount, total, toOwner, fromOwner)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opTransfer, err)
	}

	res, err := spend(ctx, acct, chain, p.ContractID, inputs, outs, p.Password, p.Policy)
	if err != nil {
		return nil, err
	}
	log.FT.Debug().
		Str("txid", res.TxID).
		Str("contract", p.ContractID).
		Uint64("amount", p.Amount).
		Int("token_inputs", len(inputs)).
		Uint64("fee", res.Fee).
		Msg("token transfer built")
	return res, nil
}

// TokenOutputs returns the recipient's token output and, when total
// exceeds amount, the token change output back to changeOwner.
func TokenOutputs(contractID string, amount, total uint64, toOwner, changeOwner *script.Script) ([]*transaction.TransactionOutput, error) {
	if amount == 0 || total < amount {
		return nil, fmt.Errorf("%w: amount %d of %d", ErrInvalidParams, amount, total)
	}
	lock, err := CodeLock(contractID, amount, toOwner)
	if err != nil {
		return nil, err
	}
	outs := []*transaction.TransactionOutput{{Satoshis: CodeOutputValue, LockingScript: lock}}
	if rest := total - amount; rest > 0 {
		changeLock, err := CodeLock(contractID, rest, changeOwner)
		if err != nil {
			return nil, err
		}
		outs = append(outs, &transaction.TransactionOutput{Satoshis: CodeOutputValue, LockingScript: changeLock})
	}
	return outs, nil
}

// EstimateSize estimates the size of a token transaction spending the
// given ancestors plus feeInputs P2PKH inputs into outputs outputs, all
// but one of which are token outputs.
func EstimateSize(ancestors []Ancestor, feeInputs, outputs int) int {
	size := fee.NativeSize(len(ancestors)+feeInputs, outputs)
	for _, a := range ancestors {
		size += len(a.Proof) + 5
	}
	if outputs > 1 {
		size += (outputs - 1) * codeOverhead
	}
	return size
}

// spend signs a transaction from the account that consumes inputs and
// pays outs, adding native fee inputs and native change as needed.
func spend(ctx context.Context, acct *wallet.AccountContext, chain network.TBCService, contractID string,
	inputs []utxo.FTUTXO, outs []*transaction.TransactionOutput, password string, policy fee.NativePolicy) (*tx.Result, error) {

	if policy.FlatFee == 0 && policy.RatePerKB == 0 {
		policy = fee.DefaultNativePolicy()
	}
	from := acct.Address()
	fromLock, err := tx.P2PKHLock(from)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opTransfer, err)
	}

	ancestors, err := FetchAncestors(ctx, chain, contractID, inputs)
	if err != nil {
		return nil, txerr.New(txerr.Unknown, opTransfer, err)
	}
	var tokenValue, outValue uint64
	for i, a := range ancestors {
		_, _, owner, _ := ParseCodeLock(a.Source.LockingScript)
		if !bytes.Equal(*owner, *fromLock) {
			return nil, txerr.New(txerr.Validation, opTransfer,
				fmt.Errorf("%w: %s is not owned by %s", ErrInvalidCode, inputs[i].Outpoint(), from))
		}
		tokenValue += a.Source.Satoshis
	}
	for _, o := range outs {
		outValue += o.Satoshis
	}

	estimate := func(feeInputs int) uint64 {
		return policy.Fee(EstimateSize(ancestors, feeInputs, len(outs)+1))
	}
	// Token inputs already carry tokenValue; fee inputs cover the rest.
	need := func(feeInputs int) uint64 {
		if total := outValue + estimate(feeInputs); total > tokenValue {
			return total - tokenValue
		}
		return 1
	}
	fetch := func(ctx context.Context) ([]utxo.UTXO, error) {
		return chain.ListUnspent(ctx, from, 0)
	}
	sel, err := utxo.SelectWithRefresh(ctx, acct.UTXOs, fetch, func(c []utxo.UTXO) (*utxo.Selection, error) {
		return utxo.SelectNativeFunc(c, need)
	})
	if err != nil {
		return nil, err
	}
	txFee := estimate(len(sel.Inputs))
	inValue := tokenValue + sel.Total
	if inValue < outValue+txFee {
		return nil, txerr.New(txerr.InsufficientFunds, opTransfer,
			fmt.Errorf("%w: need %d, have %d", tx.ErrInsufficientFunds, outValue+txFee, inValue))
	}
	feeSources, err := tx.FetchSourceOutputs(ctx, chain, sel.Inputs)
	if err != nil {
		return nil, txerr.New(txerr.Unknown, opTransfer, err)
	}

	sdkTx := transaction.NewTransaction()
	consumed := make([]utxo.UTXO, 0, len(inputs)+len(sel.Inputs))
	for _, u := range inputs {
		if err := tx.AddInput(sdkTx, u.TxID, u.Vout); err != nil {
			return nil, txerr.New(txerr.Validation, opTransfer, err)
		}
		consumed = append(consumed, u.AsUTXO())
	}
	for _, u := range sel.Inputs {
		if err := tx.AddInput(sdkTx, u.TxID, u.Vout); err != nil {
			return nil, txerr.New(txerr.Validation, opTransfer, err)
		}
		consumed = append(consumed, u)
	}
	for _, o := range outs {
		sdkTx.AddOutput(o)
	}
	change := inValue - outValue - txFee
	if change > fee.DustLimit {
		sdkTx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: fromLock})
	}

	for i, a := range ancestors {
		sdkTx.Inputs[i].SetSourceTxOutput(a.Source)
	}
	for j, src := range feeSources {
		sdkTx.Inputs[len(ancestors)+j].SetSourceTxOutput(src)
	}

	err = acct.WithSigningKey(password, func(priv *ec.PrivateKey) error {
		pub := priv.PubKey().Compressed()
		for i := range sdkTx.Inputs {
			sig, err := tx.InputSignature(sdkTx, i, priv)
			if err != nil {
				return err
			}
			unlock, err := P2PKHUnlock(sig, pub)
			if err != nil {
				return err
			}
			if i < len(ancestors) {
				if unlock, err = CodeUnlock(unlock, ancestors[i].Proof); err != nil {
					return err
				}
			}
			sdkTx.Inputs[i].UnlockingScript = unlock
		}
		return nil
	})
	if err != nil {
		if txerr.KindOf(err) != txerr.Unknown {
			return nil, err
		}
		return nil, txerr.New(txerr.Unknown, opTransfer, err)
	}

	res, err := tx.NewResult(sdkTx, consumed, inValue)
	if err != nil {
		return nil, err
	}
	if change > fee.DustLimit {
		res.Change = &utxo.UTXO{
			TxID:   res.TxID,
			Vout:   uint32(len(outs)),
			Value:  change,
			Script: hex.EncodeToString(*fromLock),
		}
	}
	return res, nil
}
