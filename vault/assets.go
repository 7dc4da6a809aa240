package vault

import (
	"context"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/ft"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/store"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/wallet"
)

const opAssets = "vault.assets"

// TrackToken adds a token contract to acct's token list, taking its name,
// symbol and decimals from the chain. Tracking a hidden token restores it.
func (v *Vault) TrackToken(ctx context.Context, acct *wallet.AccountContext, contractID string) (*store.Asset, error) {
	if err := ft.ValidateContractID(contractID); err != nil {
		return nil, txerr.New(txerr.Validation, opAssets, err)
	}
	info, err := v.deps.TBC.FetchFTInfo(ctx, contractID)
	if err != nil {
		return nil, txerr.New(txerr.Unknown, opAssets, fmt.Errorf("token info %s: %w", contractID, err))
	}
	a := &store.Asset{
		Kind:      store.AssetFT,
		ID:        contractID,
		Owner:     acct.Address(),
		Name:      info.Name,
		Symbol:    info.Symbol,
		Decimals:  info.Decimals,
		UpdatedAt: v.deps.Clock.Now(),
	}
	if err := v.store.PutAsset(a); err != nil {
		return nil, err
	}
	log.FT.Debug().Str("contract", contractID).Str("symbol", info.Symbol).Msg("token tracked")
	return a, nil
}

// Tokens lists the tokens acct tracks.
func (v *Vault) Tokens(acct *wallet.AccountContext, includeDeleted bool) ([]*store.Asset, error) {
	return v.store.ListAssets(store.AssetFT, acct.Address(), includeDeleted)
}

// HideToken removes a token from acct's list without forgetting it.
func (v *Vault) HideToken(acct *wallet.AccountContext, contractID string) error {
	return v.store.SoftDeleteAsset(store.AssetFT, acct.Address(), contractID)
}

// RestoreToken shows a hidden token again.
func (v *Vault) RestoreToken(acct *wallet.AccountContext, contractID string) error {
	return v.store.RestoreAsset(store.AssetFT, acct.Address(), contractID)
}
