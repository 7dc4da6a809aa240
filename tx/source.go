package tx

import (
	"context"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"golang.org/x/sync/errgroup"
)

// FetchSourceOutputs fetches the previous transaction of every input in
// parallel and returns the outputs being spent, in input order. Any failed
// fetch fails the whole call.
func FetchSourceOutputs(ctx context.Context, chain network.ChainReader, inputs []utxo.UTXO) ([]*transaction.TransactionOutput, error) {
	outs := make([]*transaction.TransactionOutput, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range inputs {
		g.Go(func() error {
			prev, err := FetchTx(gctx, chain, u.TxID)
			if err != nil {
				return err
			}
			if int(u.Vout) >= len(prev.Outputs) {
				return fmt.Errorf("%w: %s has no output %d", ErrPrevTxFetch, u.TxID, u.Vout)
			}
			outs[i] = prev.Outputs[u.Vout]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// FetchTx fetches and parses one transaction, checking that its hash
// matches txid.
func FetchTx(ctx context.Context, chain network.ChainReader, txid string) (*transaction.Transaction, error) {
	raw, err := chain.GetRawTx(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPrevTxFetch, txid, err)
	}
	prev, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrPrevTxFetch, txid, err)
	}
	if got := prev.TxID().String(); got != txid {
		return nil, fmt.Errorf("%w: fetched %s, want %s", ErrPrevTxFetch, got, txid)
	}
	return prev, nil
}

// AddInput appends an input spending txid:vout.
func AddInput(sdkTx *transaction.Transaction, txid string, vout uint32) error {
	hash, err := chainhash.NewHashFromHex(txid)
	if err != nil {
		return fmt.Errorf("%w: txid %q: %w", ErrInvalidParams, txid, err)
	}
	sdkTx.AddInput(&transaction.TransactionInput{
		SourceTXID:       hash,
		SourceTxOutIndex: vout,
		SequenceNumber:   transaction.DefaultSequenceNumber,
	})
	return nil
}
