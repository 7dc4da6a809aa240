package ft

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/utxo"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"golang.org/x/sync/errgroup"
)

// Ancestor is what spending one token output needs from its history: the
// output itself, taken from its parent transaction, and the proof blob
// covering the parent's own inputs.
type Ancestor struct {
	Source *transaction.TransactionOutput
	Proof  []byte
}

// FetchAncestors fetches the parent transaction and the pre-pre proof of
// every input in parallel. Each parent output must be a token output of
// contractID carrying the balance the listing reported.
func FetchAncestors(ctx context.Context, chain network.TBCService, contractID string, inputs []utxo.FTUTXO) ([]Ancestor, error) {
	out := make([]Ancestor, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range inputs {
		g.Go(func() error {
			parent, err := tx.FetchTx(gctx, chain, u.TxID)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrAncestorFetch, err)
			}
			if int(u.Vout) >= len(parent.Outputs) {
				return fmt.Errorf("%w: %s has no output %d", ErrAncestorFetch, u.TxID, u.Vout)
			}
			src := parent.Outputs[u.Vout]
			cid, balance, _, err := ParseCodeLock(src.LockingScript)
			if err != nil {
				return fmt.Errorf("%s:%d: %w", u.TxID, u.Vout, err)
			}
			if cid != contractID || balance != u.Balance {
				return fmt.Errorf("%w: %s:%d holds %d of %s", ErrInvalidCode, u.TxID, u.Vout, balance, cid)
			}
			out[i].Source = src
			return nil
		})
		g.Go(func() error {
			data, err := chain.FetchPrePreTxData(gctx, u.TxID, u.Vout)
			if err != nil {
				return fmt.Errorf("%w: proof %s:%d: %w", ErrAncestorFetch, u.TxID, u.Vout, err)
			}
			proof, err := hex.DecodeString(data)
			if err != nil || len(proof) == 0 {
				return fmt.Errorf("%w: proof %s:%d is not hex", ErrAncestorFetch, u.TxID, u.Vout)
			}
			out[i].Proof = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
