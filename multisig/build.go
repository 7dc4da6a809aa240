package multisig

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

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

const (
	opBuild   = "multisig.build"
	opSign    = "multisig.sign"
	opFinish  = "multisig.finish"
	opDeposit = "multisig.deposit"
)

// Params describes a native-coin payment out of a multisig wallet.
type Params struct {
	Wallet   *Wallet
	To       string // P2PKH or multisig address
	Amount   uint64
	Password string
	Policy   fee.NativePolicy // zero value uses fee.DefaultNativePolicy()
}

// EstimateSize estimates a transaction spending inputs multisig inputs of
// an m-of-n wallet into outputs P2PKH-sized outputs.
func EstimateSize(inputs, m, n, outputs int) int {
	// outpoint(36) + sequence(4) + script length(3), OP_0, m sigs, OP_m, n keys
	perInput := 43 + 1 + m*73 + 1 + n*34
	return 10 + inputs*perInput + outputs*34
}

// unlockOverhead is how much larger a multisig unlock is than a P2PKH one.
func unlockOverhead(m, n int) int {
	return EstimateSize(1, m, n, 0) - fee.NativeSize(1, 0)
}

// Build assembles an unsigned payment from the wallet's outputs, which are
// looked up by script hash, and signs it with the account's key. The
// account's key must belong to the wallet.
func Build(ctx context.Context, acct *wallet.AccountContext, chain network.TBCService, p *Params) (*Transaction, error) {
	if acct == nil || chain == nil || p == nil {
		return nil, txerr.New(txerr.Validation, opBuild, fmt.Errorf("%w: account, chain or params", ErrInvalidParams))
	}
	if err := p.Wallet.Validate(); err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}
	if p.Amount == 0 {
		return nil, txerr.New(txerr.Validation, opBuild, fmt.Errorf("%w: amount must be positive", ErrInvalidParams))
	}
	toLock, err := tx.LockForAddress(p.To)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}
	w := p.Wallet
	lock, err := w.Lock()
	if err != nil {
		return nil, txerr.New(txerr.Validation, opBuild, err)
	}
	policy := defaultPolicy(p.Policy)
	m, n := w.Required, len(w.PubKeys)

	sel, err := selectWalletOutputs(ctx, chain, lock, func(inputs int) uint64 {
		return p.Amount + policy.Fee(EstimateSize(inputs, m, n, 2))
	})
	if err != nil {
		return nil, err
	}
	txFee := policy.Fee(EstimateSize(len(sel.Inputs), m, n, 2))
	if sel.Total < p.Amount+txFee {
		return nil, txerr.New(txerr.InsufficientFunds, opBuild,
			fmt.Errorf("%w: need %d, have %d", tx.ErrInsufficientFunds, p.Amount+txFee, sel.Total))
	}

	sdkTx := transaction.NewTransaction()
	sources := make([]*transaction.TransactionOutput, 0, len(sel.Inputs))
	for _, u := range sel.Inputs {
		if err := tx.AddInput(sdkTx, u.TxID, u.Vout); err != nil {
			return nil, txerr.New(txerr.Validation, opBuild, err)
		}
		sources = append(sources, &transaction.TransactionOutput{Satoshis: u.Value, LockingScript: lock})
	}
	sdkTx.AddOutput(&transaction.TransactionOutput{Satoshis: p.Amount, LockingScript: toLock})
	if change := sel.Total - p.Amount - txFee; change > fee.DustLimit {
		sdkTx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: lock})
	}

	t := newTransaction(w, sdkTx, sources, nil, "", []Recipient{{Address: p.To, Amount: p.Amount}}, time.Now())
	if err := Sign(t, acct, p.Password); err != nil {
		return nil, err
	}
	log.MultiSig.Info().
		Str("unsigned_txid", t.UnsignedTxID).
		Str("address", w.Address).
		Int("inputs", len(sel.Inputs)).
		Uint64("amount", p.Amount).
		Uint64("fee", txFee).
		Stringer("state", t.State).
		Msg("multisig transaction built")
	return t, nil
}

// selectWalletOutputs lists the outputs locked to lock and selects enough
// of them to cover need.
func selectWalletOutputs(ctx context.Context, chain network.TBCService, lock *script.Script, need utxo.NeedFunc) (*utxo.Selection, error) {
	list, err := chain.FetchUTXOsByScriptHash(ctx, tx.ScriptHash(lock))
	if err != nil {
		return nil, txerr.New(txerr.Unknown, opBuild, err)
	}
	list = utxo.Unspent(list)
	if len(list) == 0 {
		return nil, txerr.New(txerr.ZeroBalance, opBuild, ErrNoUTXOs)
	}
	return utxo.SelectNativeFunc(list, need)
}

// Sign adds the account's signatures to t. The raw transaction is checked
// against t's unsigned id first, so a signer never signs something other
// than what the id names.
func Sign(t *Transaction, acct *wallet.AccountContext, password string) error {
	if t == nil || acct == nil {
		return txerr.New(txerr.Validation, opSign, fmt.Errorf("%w: transaction or account", ErrInvalidParams))
	}
	if t.State.Final() {
		return txerr.New(txerr.Validation, opSign, fmt.Errorf("%w: transaction is %s", ErrInvalidState, t.State))
	}
	sdkTx, err := t.unsigned()
	if err != nil {
		return txerr.New(txerr.Validation, opSign, err)
	}

	var pub string
	sigs := make([]string, len(sdkTx.Inputs))
	err = acct.WithSigningKey(password, func(priv *ec.PrivateKey) error {
		pub = hex.EncodeToString(priv.PubKey().Compressed())
		if !t.Wallet().HasSigner(pub) {
			return txerr.New(txerr.Validation, opSign, fmt.Errorf("%w: %s", ErrUnknownSigner, pub))
		}
		for i := range sdkTx.Inputs {
			sig, err := tx.InputSignature(sdkTx, i, priv)
			if err != nil {
				return err
			}
			sigs[i] = hex.EncodeToString(sig)
		}
		return nil
	})
	if err != nil {
		if txerr.KindOf(err) != txerr.Unknown {
			return err
		}
		return txerr.New(txerr.Unknown, opSign, err)
	}
	if err := t.AddSignature(pub, sigs); err != nil {
		return txerr.New(txerr.Validation, opSign, err)
	}
	log.MultiSig.Info().
		Str("unsigned_txid", t.UnsignedTxID).
		Str("signer", pub).
		Int("signatures", t.SignatureCount()).
		Int("required", t.Required).
		Stringer("state", t.State).
		Msg("multisig transaction signed")
	return nil
}

// VerifySignatures checks pubKey's per-input signatures against t.
func VerifySignatures(t *Transaction, pubKey string, sigs []string) error {
	if !t.Wallet().HasSigner(pubKey) {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, pubKey)
	}
	sdkTx, err := t.unsigned()
	if err != nil {
		return err
	}
	return verifyWith(sdkTx, pubKey, sigs)
}

func verifyWith(sdkTx *transaction.Transaction, pubKey string, sigs []string) error {
	if len(sigs) != len(sdkTx.Inputs) {
		return fmt.Errorf("%w: %d signatures for %d inputs", ErrInvalidParams, len(sigs), len(sdkTx.Inputs))
	}
	pub, err := hex.DecodeString(pubKey)
	if err != nil {
		return fmt.Errorf("%w: public key: %w", ErrInvalidParams, err)
	}
	for i, s := range sigs {
		sig, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("%w: signature %d: %w", tx.ErrInvalidSignature, i, err)
		}
		if err := tx.VerifyInputSignature(sdkTx, i, sig, pub); err != nil {
			return err
		}
	}
	return nil
}

// Assemble returns the fully signed transaction hex. It fails with
// ThresholdNotMet before doing anything else when fewer than Required
// members have signed. Signatures that do not verify are skipped; each
// input's unlock takes the valid signatures in key-set order.
func Assemble(t *Transaction) (string, error) {
	if t == nil {
		return "", txerr.New(txerr.Validation, opFinish, fmt.Errorf("%w: nil transaction", ErrInvalidParams))
	}
	if t.State.Final() {
		return "", txerr.New(txerr.Validation, opFinish, fmt.Errorf("%w: transaction is %s", ErrInvalidState, t.State))
	}
	if got := t.SignatureCount(); got < t.Required {
		return "", txerr.New(txerr.ThresholdNotMet, opFinish,
			fmt.Errorf("%w: %d of %d", ErrThresholdNotMet, got, t.Required))
	}
	sdkTx, err := t.unsigned()
	if err != nil {
		return "", txerr.New(txerr.Validation, opFinish, err)
	}

	chosen := make([][]string, 0, t.Required)
	for _, pk := range t.Signers() {
		if len(chosen) == t.Required {
			break
		}
		sigs := t.Signatures[pk]
		if err := verifyWith(sdkTx, pk, sigs); err != nil {
			log.MultiSig.Warn().Str("unsigned_txid", t.UnsignedTxID).Str("signer", pk).Err(err).Msg("ignoring invalid signature")
			continue
		}
		chosen = append(chosen, sigs)
	}
	if len(chosen) < t.Required {
		return "", txerr.New(txerr.ThresholdNotMet, opFinish,
			fmt.Errorf("%w: %d valid of %d", ErrThresholdNotMet, len(chosen), t.Required))
	}

	for i, in := range sdkTx.Inputs {
		perInput := make([][]byte, len(chosen))
		for k, sigs := range chosen {
			perInput[k], _ = hex.DecodeString(sigs[i])
		}
		unlock, err := tx.MultiSigUnlock(perInput, t.PubKeys, t.Required)
		if err != nil {
			return "", txerr.New(txerr.Validation, opFinish, err)
		}
		if len(t.Proofs) > 0 && t.Proofs[i] != "" {
			if unlock, err = withProof(unlock, t.Proofs[i]); err != nil {
				return "", txerr.New(txerr.Validation, opFinish, err)
			}
		}
		in.UnlockingScript = unlock
	}
	return sdkTx.Hex(), nil
}

// Finish assembles t, broadcasts it and marks it completed.
func Finish(ctx context.Context, t *Transaction, chain network.Broadcaster) (string, error) {
	rawHex, err := Assemble(t)
	if err != nil {
		return "", err
	}
	txid, err := chain.BroadcastTx(ctx, rawHex)
	if err != nil {
		return "", err
	}
	if err := t.Complete(txid); err != nil {
		return "", txerr.New(txerr.Validation, opFinish, err)
	}
	log.MultiSig.Info().
		Str("unsigned_txid", t.UnsignedTxID).
		Str("txid", txid).
		Stringer("state", t.State).
		Msg("multisig transaction broadcast")
	return txid, nil
}

// BuildDeposit builds the payment that funds a newly created wallet from
// the account.
func BuildDeposit(ctx context.Context, acct *wallet.AccountContext, chain network.ChainReader, w *Wallet, password string, policy fee.NativePolicy) (*tx.Result, error) {
	if err := w.Validate(); err != nil {
		return nil, txerr.New(txerr.Validation, opDeposit, err)
	}
	return tx.BuildTBCTransfer(ctx, acct, chain, &tx.TransferParams{
		To:       w.Address,
		Amount:   DepositAmount,
		Password: password,
		Policy:   policy,
	})
}

func defaultPolicy(p fee.NativePolicy) fee.NativePolicy {
	if p.FlatFee == 0 && p.RatePerKB == 0 {
		return fee.DefaultNativePolicy()
	}
	return p
}
