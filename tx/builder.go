package tx

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

const opBuild = "tx.build"

// TransferParams describes a native-coin payment.
type TransferParams struct {
	To       string // P2PKH or multisig address
	Amount   uint64 // smallest units
	Password string
	Policy   fee.NativePolicy // zero value uses fee.DefaultNativePolicy()
}

// Result is a signed, unsent transaction plus the outputs it consumes.
// Fee is always inputs minus outputs.
type Result struct {
	TxHex  string
	TxID   string
	Fee    uint64
	Info   fee.Info
	UTXOs  []utxo.UTXO
	Change *utxo.UTXO // nil when change was dust
}

// BuildTBCTransfer selects inputs from the account's cache (refetching
// when the cache looks short), pays p.Amount to p.To, returns change above
// the dust limit to the sender and signs every input. Nothing is broadcast.
func BuildTBCTransfer(ctx context.Context, acct *wallet.AccountContext, chain network.ChainReader, p *TransferParams) (*Result, error) {
	if acct == nil || chain == nil || p == nil {
		return nil, txerr.New(txerr.Validation, opBuild, fmt.Errorf("%w: account, chain or params", ErrNilParam))
	}
	if acct.Type.IsBTC() {
		return nil, txerr.New(txerr.Validation, opBuild,
			fmt.Errorf("%w: %s account cannot build native transfers", ErrInvalidParams, acct.Type))
	}
	if p.Amount == 0 {
		return nil, txerr.New(txerr.Validation, opBuild, fmt.Errorf("%w: amount must be positive", ErrInvalidParams))
	}
	toLock, err := LockForAddress(p.To)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}
	from := acct.Address()
	fromLock, err := P2PKHLock(from)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}

	policy := p.Policy
	if policy.FlatFee == 0 && policy.RatePerKB == 0 {
		policy = fee.DefaultNativePolicy()
	}
	need := func(inputs int) uint64 {
		return p.Amount + policy.Fee(fee.NativeSize(inputs, 2))
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

	txFee := policy.Fee(fee.NativeSize(len(sel.Inputs), 2))
	if sel.Total < p.Amount+txFee {
		return nil, txerr.New(txerr.InsufficientFunds, opBuild,
			fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, p.Amount+txFee, sel.Total))
	}

	sources, err := FetchSourceOutputs(ctx, chain, sel.Inputs)
	if err != nil {
		return nil, txerr.New(txerr.Unknown, opBuild, err)
	}

	sdkTx := transaction.NewTransaction()
	for _, u := range sel.Inputs {
		if err := AddInput(sdkTx, u.TxID, u.Vout); err != nil {
			return nil, txerr.New(txerr.Validation, opBuild, err)
		}
	}
	sdkTx.AddOutput(&transaction.TransactionOutput{Satoshis: p.Amount, LockingScript: toLock})

	change := sel.Total - p.Amount - txFee
	if change > fee.DustLimit {
		sdkTx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: fromLock})
	}

	err = acct.WithSigningKey(p.Password, func(priv *ec.PrivateKey) error {
		return SignP2PKH(sdkTx, sources, priv)
	})
	if err != nil {
		if txerr.KindOf(err) != txerr.Unknown {
			return nil, err
		}
		return nil, txerr.New(txerr.Unknown, opBuild, err)
	}

	res, err := NewResult(sdkTx, sel.Inputs, sel.Total)
	if err != nil {
		return nil, err
	}
	if change > fee.DustLimit {
		res.Change = &utxo.UTXO{TxID: res.TxID, Vout: 1, Value: change, Script: hex.EncodeToString(*fromLock)}
	}

	log.Builder.Debug().
		Str("txid", res.TxID).
		Int("inputs", len(sel.Inputs)).
		Uint64("amount", p.Amount).
		Uint64("fee", res.Fee).
		Bool("change", res.Change != nil).
		Msg("tbc transfer built")
	return res, nil
}

// NewResult wraps a signed transaction, computing the residual fee from
// the consumed input total.
func NewResult(sdkTx *transaction.Transaction, consumed []utxo.UTXO, inputTotal uint64) (*Result, error) {
	txFee, err := fee.Residual(inputTotal, sdkTx.TotalOutputSatoshis())
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}
	return &Result{
		TxHex: sdkTx.Hex(),
		TxID:  sdkTx.TxID().String(),
		Fee:   txFee,
		Info:  fee.NewInfo(txFee, len(sdkTx.Bytes()), 0),
		UTXOs: consumed,
	}, nil
}
