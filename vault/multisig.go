package vault

import (
	"context"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/amount"
	"github.com/bitfsorg/tbcwallet-go/cosign"
	"github.com/bitfsorg/tbcwallet-go/ft"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/multisig"
	"github.com/bitfsorg/tbcwallet-go/store"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/wallet"
)

const opMultiSig = "vault.multisig"

// CreateMultiSigWallet derives the M-of-N address of pubKeys, funds it with
// the deposit from acct and adds it to acct's address book. acct's key
// must be one of pubKeys.
func (v *Vault) CreateMultiSigWallet(ctx context.Context, acct *wallet.AccountContext, pubKeys []string, required int, password string) (*multisig.Wallet, string, error) {
	w, err := multisig.NewWallet(pubKeys, required)
	if err != nil {
		return nil, "", txerr.New(txerr.Validation, opMultiSig, err)
	}
	if !w.HasSigner(acct.PublicKey) {
		return nil, "", txerr.New(txerr.Validation, opMultiSig, ErrNotMember)
	}

	var txid string
	err = v.withWriteLock(func() error {
		deposit := func(ctx context.Context) (*tx.Result, error) {
			return multisig.BuildDeposit(ctx, acct, v.deps.TBC, w, password, v.policy())
		}
		res, err := deposit(ctx)
		if err != nil {
			return err
		}
		txid, err = v.tbc.SubmitWithRetry(ctx, acct, res, deposit)
		if err != nil {
			return err
		}
		v.record(&store.HistoryRow{
			TxID:    txid,
			Address: acct.Address(),
			Kind:    store.HistoryMultiSig,
			Amount:  -int64(multisig.DepositAmount),
			Fee:     res.Fee,
			Status:  "deposit",
		})
		return v.store.PutMultiSig(acct.Address(), w)
	})
	if err != nil {
		return nil, "", err
	}
	log.MultiSig.Info().Str("address", w.Address).Int("required", w.Required).Int("keys", len(w.PubKeys)).Str("deposit_txid", txid).Msg("multisig wallet created")
	return w, txid, nil
}

// MultiSigWallets lists acct's multisig address book.
func (v *Vault) MultiSigWallets(acct *wallet.AccountContext, includeDeleted bool) ([]*multisig.Wallet, error) {
	return v.store.ListMultiSig(acct.Address(), includeDeleted)
}

// DeleteMultiSigWallet hides a wallet from acct's address book.
func (v *Vault) DeleteMultiSigWallet(acct *wallet.AccountContext, address string) error {
	return v.store.SoftDeleteMultiSig(acct.Address(), address)
}

// RestoreMultiSigWallet un-hides a wallet in acct's address book.
func (v *Vault) RestoreMultiSigWallet(acct *wallet.AccountContext, address string) error {
	return v.store.RestoreMultiSig(acct.Address(), address)
}

// MultiSigRequest is a payment out of a multisig wallet as the user typed
// it. An empty ContractID pays native coin.
type MultiSigRequest struct {
	Wallet     string // multisig address from the address book
	ContractID string
	To         string
	Amount     string // human units
	Password   string
}

// InitiateMultiSig builds and self-signs a multisig payment and hands it
// to the relay for the other members.
func (v *Vault) InitiateMultiSig(ctx context.Context, acct *wallet.AccountContext, req MultiSigRequest) (*multisig.Transaction, error) {
	relay, err := v.relay()
	if err != nil {
		return nil, err
	}
	w, err := v.store.GetMultiSig(acct.Address(), req.Wallet)
	if err != nil {
		return nil, txerr.New(txerr.Validation, opMultiSig, fmt.Errorf("%w: wallet %s: %w", ErrInvalidRequest, req.Wallet, err))
	}

	var mt *multisig.Transaction
	if req.ContractID == "" {
		units, err := amount.ToUnits(req.Amount, amount.TBCDecimals)
		if err != nil {
			return nil, txerr.New(txerr.Validation, opMultiSig, err)
		}
		to, err := v.recipient(ctx, SendRequest{Asset: AssetTBC, To: req.To}, units)
		if err != nil {
			return nil, err
		}
		mt, err = multisig.Build(ctx, acct, v.deps.TBC, &multisig.Params{
			Wallet: w, To: to, Amount: units, Password: req.Password, Policy: v.policy(),
		})
		if err != nil {
			return nil, err
		}
	} else {
		if err := ft.ValidateContractID(req.ContractID); err != nil {
			return nil, txerr.New(txerr.Validation, opMultiSig, err)
		}
		info, err := v.deps.TBC.FetchFTInfo(ctx, req.ContractID)
		if err != nil {
			return nil, txerr.New(txerr.Unknown, opMultiSig, fmt.Errorf("token info %s: %w", req.ContractID, err))
		}
		units, err := amount.ToUnits(req.Amount, info.Decimals)
		if err != nil {
			return nil, txerr.New(txerr.Validation, opMultiSig, err)
		}
		to, err := v.recipient(ctx, SendRequest{Asset: AssetFT, To: req.To}, units)
		if err != nil {
			return nil, err
		}
		mt, err = multisig.BuildFT(ctx, acct, v.deps.TBC, &multisig.FTParams{
			Wallet: w, ContractID: req.ContractID, To: to, Amount: units, Password: req.Password, Policy: v.policy(),
		})
		if err != nil {
			return nil, err
		}
	}
	return relay.Submit(ctx, mt)
}

// SignMultiSig adds acct's signatures to a relayed transaction.
func (v *Vault) SignMultiSig(ctx context.Context, acct *wallet.AccountContext, unsignedTxID, password string) (*multisig.Transaction, error) {
	relay, err := v.relay()
	if err != nil {
		return nil, err
	}
	mt, err := relay.Get(ctx, unsignedTxID)
	if err != nil {
		return nil, err
	}
	if err := multisig.Sign(mt, acct, password); err != nil {
		return nil, err
	}
	return relay.Sign(ctx, unsignedTxID, acct.PublicKey, mt.Signatures[acct.PublicKey])
}

// FinishMultiSig assembles and broadcasts a relayed transaction once it
// has enough signatures, then marks it completed on the relay. Too few
// signatures fail before anything is broadcast.
func (v *Vault) FinishMultiSig(ctx context.Context, acct *wallet.AccountContext, unsignedTxID string) (string, error) {
	relay, err := v.relay()
	if err != nil {
		return "", err
	}
	mt, err := relay.Get(ctx, unsignedTxID)
	if err != nil {
		return "", err
	}
	txid, err := multisig.Finish(ctx, mt, v.deps.TBC)
	if err != nil {
		return "", err
	}
	log.MultiSig.Info().Str("unsigned_txid", unsignedTxID).Str("txid", txid).Str("by", acct.PublicKey).Msg("multisig transaction finished")
	if _, err := relay.Complete(ctx, unsignedTxID, txid); err != nil {
		log.MultiSig.Warn().Str("unsigned_txid", unsignedTxID).Str("txid", txid).Err(err).Msg("broadcast succeeded but relay not updated")
	}

	var sent uint64
	for _, r := range mt.Recipients {
		sent += r.Amount
	}
	v.record(&store.HistoryRow{
		TxID:       txid,
		Address:    mt.Address,
		Kind:       store.HistoryMultiSig,
		ContractID: mt.ContractID,
		Amount:     -int64(sent),
		Status:     mt.State.String(),
	})
	return txid, nil
}

// WithdrawMultiSig cancels a relayed transaction on behalf of acct.
func (v *Vault) WithdrawMultiSig(ctx context.Context, acct *wallet.AccountContext, unsignedTxID string) (*multisig.Transaction, error) {
	relay, err := v.relay()
	if err != nil {
		return nil, err
	}
	return relay.Withdraw(ctx, unsignedTxID, acct.PublicKey)
}

// PendingMultiSig returns the relayed transactions acct is a member of.
func (v *Vault) PendingMultiSig(ctx context.Context, acct *wallet.AccountContext, page int) (*cosign.Pending, error) {
	relay, err := v.relay()
	if err != nil {
		return nil, err
	}
	return relay.FetchPending(ctx, acct.PublicKey, page)
}

func (v *Vault) relay() (cosign.Client, error) {
	if v.deps.Cosign == nil {
		return nil, fmt.Errorf("%w: coordination relay", ErrOffline)
	}
	return v.deps.Cosign, nil
}
