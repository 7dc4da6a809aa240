// Package btctx builds and signs Bitcoin payments for Taproot (key path)
// and Legacy (P2PKH) accounts through a PSBT.
package btctx

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
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const opBuild = "btctx.build"

// TransferParams describes a Bitcoin payment.
type TransferParams struct {
	To       string
	Amount   uint64 // satoshis
	Password string
	// FeeRate in sat/vbyte. When zero the rate of FeeTier is fetched.
	FeeRate decimal.Decimal
	FeeTier string // "fastest", "halfHour" or "hour"
}

// BuildTransfer selects inputs, applies the fee safety cap, drops dust
// change and signs every input. Nothing is broadcast.
func BuildTransfer(ctx context.Context, acct *wallet.AccountContext, chain network.BTCService, p *TransferParams) (*tx.Result, error) {
	if acct == nil || chain == nil || p == nil {
		return nil, txerr.New(txerr.Validation, opBuild, fmt.Errorf("%w: account, chain or params", ErrInvalidParams))
	}
	if !acct.Type.IsBTC() {
		return nil, txerr.New(txerr.Validation, opBuild,
			fmt.Errorf("%w: %s account cannot build bitcoin transfers", ErrInvalidParams, acct.Type))
	}
	if p.Amount == 0 {
		return nil, txerr.New(txerr.Validation, opBuild, fmt.Errorf("%w: amount must be positive", ErrInvalidParams))
	}
	params := acct.Network.BTC
	toScript, err := payToScript(p.To, params)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}
	from := acct.Address()
	fromScript, err := payToScript(from, params)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}

	rate, err := resolveRate(ctx, chain, p)
	if err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context) ([]utxo.UTXO, error) {
		return chain.ListUnspent(ctx, from, 0)
	}
	sel, err := utxo.SelectWithRefresh(ctx, acct.UTXOs, fetch, func(c []utxo.UTXO) (*utxo.Selection, error) {
		return utxo.SelectBTC(c, p.Amount, rate)
	})
	if err != nil {
		return nil, err
	}

	rate = fee.CapRate(len(sel.Inputs), 2, p.Amount, rate)
	txFee := fee.BTCFee(len(sel.Inputs), 2, rate)
	if sel.Total < p.Amount+txFee {
		return nil, txerr.New(txerr.InsufficientFunds, opBuild,
			fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, p.Amount+txFee, sel.Total))
	}

	prevTxs, err := fetchPrevTxs(ctx, chain, sel.Inputs)
	if err != nil {
		return nil, txerr.New(txerr.Unknown, opBuild, err)
	}

	msgTx := wire.NewMsgTx(wire.TxVersion)
	for i, u := range sel.Inputs {
		msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevTxs[i].hash, u.Vout), nil, nil))
	}
	msgTx.AddTxOut(wire.NewTxOut(int64(p.Amount), toScript))
	change := sel.Total - p.Amount - txFee
	if change > fee.DustLimit {
		msgTx.AddTxOut(wire.NewTxOut(int64(change), fromScript))
	}

	var signed *wire.MsgTx
	err = acct.WithSigningKey(p.Password, func(priv *ec.PrivateKey) error {
		var err error
		signed, err = signPSBT(msgTx, prevTxs, sel.Inputs, acct.Type, priv)
		return err
	})
	if err != nil {
		if txerr.KindOf(err) != txerr.Unknown {
			return nil, err
		}
		return nil, txerr.New(txerr.Unknown, opBuild, err)
	}

	var buf bytes.Buffer
	if err := signed.Serialize(&buf); err != nil {
		return nil, txerr.New(txerr.Unknown, opBuild, fmt.Errorf("%w: serialize: %w", ErrSigningFailed, err))
	}
	outTotal := uint64(0)
	for _, out := range signed.TxOut {
		outTotal += uint64(out.Value)
	}
	finalFee, err := fee.Residual(sel.Total, outTotal)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(signed))

	res := &tx.Result{
		TxHex: hex.EncodeToString(buf.Bytes()),
		TxID:  signed.TxHash().String(),
		Fee:   finalFee,
		Info:  fee.NewInfo(finalFee, buf.Len(), int(weight)),
		UTXOs: sel.Inputs,
	}
	if change > fee.DustLimit {
		res.Change = &utxo.UTXO{TxID: res.TxID, Vout: 1, Value: change, Script: hex.EncodeToString(fromScript)}
	}

	log.Builder.Debug().
		Str("txid", res.TxID).
		Str("account", acct.Type.String()).
		Int("inputs", len(sel.Inputs)).
		Str("rate", rate.String()).
		Uint64("fee", res.Fee).
		Int("vsize", res.Info.TxVsize).
		Msg("btc transfer built")
	return res, nil
}

// resolveRate returns p.FeeRate, or the fetched rate of p.FeeTier.
func resolveRate(ctx context.Context, chain network.BTCService, p *TransferParams) (decimal.Decimal, error) {
	if p.FeeRate.IsPositive() {
		return p.FeeRate, nil
	}
	rates, err := chain.FetchFeeRates(ctx)
	if err != nil {
		return decimal.Zero, txerr.New(txerr.Unknown, opBuild, fmt.Errorf("%w: %w", ErrFeeRate, err))
	}
	r := rates.Tier(p.FeeTier)
	if r == 0 {
		return decimal.Zero, txerr.New(txerr.Unknown, opBuild, fmt.Errorf("%w: tier %q is zero", ErrFeeRate, p.FeeTier))
	}
	return decimal.NewFromInt(int64(r)), nil
}

func payToScript(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("%w: %q is not a %s address", ErrInvalidAddress, address, params.Name)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}
	return pkScript, nil
}

// prevTx is a fetched funding transaction.
type prevTx struct {
	hash *chainhash.Hash
	tx   *wire.MsgTx
}

// fetchPrevTxs fetches the full funding transaction of every input in
// parallel. Legacy inputs sign against the full transaction.
func fetchPrevTxs(ctx context.Context, chain network.ChainReader, inputs []utxo.UTXO) ([]prevTx, error) {
	out := make([]prevTx, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range inputs {
		g.Go(func() error {
			raw, err := chain.GetRawTx(gctx, u.TxID)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrPrevTxFetch, u.TxID, err)
			}
			msg := wire.NewMsgTx(wire.TxVersion)
			if err := msg.Deserialize(bytes.NewReader(raw)); err != nil {
				return fmt.Errorf("%w: parse %s: %w", ErrPrevTxFetch, u.TxID, err)
			}
			hash := msg.TxHash()
			if hash.String() != u.TxID {
				return fmt.Errorf("%w: fetched %s, want %s", ErrPrevTxFetch, hash, u.TxID)
			}
			if int(u.Vout) >= len(msg.TxOut) {
				return fmt.Errorf("%w: %s has no output %d", ErrPrevTxFetch, u.TxID, u.Vout)
			}
			out[i] = prevTx{hash: &hash, tx: msg}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// signPSBT wraps msgTx in a PSBT, attaches the funding data each input
// type needs, signs and finalizes, and extracts the network transaction.
func signPSBT(msgTx *wire.MsgTx, prevTxs []prevTx, inputs []utxo.UTXO, accountType wallet.AccountType, priv *ec.PrivateKey) (*wire.MsgTx, error) {
	packet, err := psbt.NewFromUnsignedTx(msgTx)
	if err != nil {
		return nil, fmt.Errorf("%w: new psbt: %w", ErrSigningFailed, err)
	}
	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, fmt.Errorf("%w: psbt updater: %w", ErrSigningFailed, err)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, u := range inputs {
		fetcher.AddPrevOut(msgTx.TxIn[i].PreviousOutPoint, prevTxs[i].tx.TxOut[u.Vout])
	}

	key, _ := btcec.PrivKeyFromBytes(priv.Serialize())
	pubKey := key.PubKey().SerializeCompressed()

	switch accountType {
	case wallet.AccountBTCTaproot:
		sigHashes := txscript.NewTxSigHashes(msgTx, fetcher)
		for i, u := range inputs {
			prevOut := prevTxs[i].tx.TxOut[u.Vout]
			if err := updater.AddInWitnessUtxo(prevOut, i); err != nil {
				return nil, fmt.Errorf("%w: witness utxo %d: %w", ErrSigningFailed, i, err)
			}
			sig, err := txscript.RawTxInTaprootSignature(msgTx, sigHashes, i, prevOut.Value,
				prevOut.PkScript, nil, txscript.SigHashDefault, key)
			if err != nil {
				return nil, fmt.Errorf("%w: taproot input %d: %w", ErrSigningFailed, i, err)
			}
			packet.Inputs[i].TaprootKeySpendSig = sig
		}
	case wallet.AccountBTCLegacy:
		for i, u := range inputs {
			if err := updater.AddInNonWitnessUtxo(prevTxs[i].tx, i); err != nil {
				return nil, fmt.Errorf("%w: non-witness utxo %d: %w", ErrSigningFailed, i, err)
			}
			prevOut := prevTxs[i].tx.TxOut[u.Vout]
			sig, err := txscript.RawTxInSignature(msgTx, i, prevOut.PkScript, txscript.SigHashAll, key)
			if err != nil {
				return nil, fmt.Errorf("%w: legacy input %d: %w", ErrSigningFailed, i, err)
			}
			if _, err := updater.Sign(i, sig, pubKey, nil, nil); err != nil {
				return nil, fmt.Errorf("%w: psbt sign %d: %w", ErrSigningFailed, i, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: account type %s", ErrInvalidParams, accountType)
	}

	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return nil, fmt.Errorf("%w: finalize: %w", ErrSigningFailed, err)
	}
	final, err := psbt.Extract(packet)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %w", ErrSigningFailed, err)
	}
	return final, nil
}
