// Package vault is the entry point the UI layer calls. It wires the chain
// clients, record store, coordination relay and alias resolver to the
// builders, and turns human inputs into built, submitted and recorded
// transactions.
package vault

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bitfsorg/tbcwallet-go/broadcast"
	"github.com/bitfsorg/tbcwallet-go/config"
	"github.com/bitfsorg/tbcwallet-go/cosign"
	"github.com/bitfsorg/tbcwallet-go/fee"
	"github.com/bitfsorg/tbcwallet-go/ft"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/network"
	"github.com/bitfsorg/tbcwallet-go/paymail"
	"github.com/bitfsorg/tbcwallet-go/store"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	"github.com/lightningnetwork/lnd/clock"
)

const (
	lockFileName    = "vault.lock"
	boltFileName    = "wallet.db"
	historyFileName = "history.db"
)

// Deps are the collaborators of a Vault. TBC is required; a nil BTC,
// Cosign or Resolver disables the operations that need it.
type Deps struct {
	TBC      network.TBCService
	BTC      network.BTCService
	Cosign   cosign.Client
	Resolver *paymail.Resolver
	Clock    clock.Clock
}

// Vault owns the wallet's local state under one data directory.
type Vault struct {
	cfg     config.Config
	network *wallet.Network
	deps    Deps

	store   *store.BoltStore
	history *store.HistoryDB

	tbc *broadcast.Reconciler
	btc *broadcast.Reconciler
	ft  *ft.Service

	// mu serializes submissions within the process; the data directory
	// lock serializes them across processes.
	mu sync.Mutex
}

// Open opens the stores under cfg.DataDir and wires deps.
func Open(cfg config.Config, deps Deps) (*Vault, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if deps.TBC == nil {
		return nil, fmt.Errorf("%w: TBC chain service", ErrOffline)
	}
	net, err := wallet.GetNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewDefaultClock()
	}

	bolt, err := store.OpenBoltStore(filepath.Join(cfg.DataDir, boltFileName))
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	hist, err := store.OpenHistoryDB(filepath.Join(cfg.DataDir, historyFileName))
	if err != nil {
		_ = bolt.Close()
		return nil, fmt.Errorf("vault: %w", err)
	}

	v := &Vault{cfg: cfg, network: net, deps: deps, store: bolt, history: hist}
	v.tbc = broadcast.NewReconciler(deps.TBC, bolt)
	if deps.BTC != nil {
		v.btc = broadcast.NewReconciler(deps.BTC, bolt)
	}
	v.ft = ft.NewService(deps.TBC, v.tbc, deps.Clock, cfg.MergeMaxIterations, cfg.MergeDelay)

	log.Wallet.Info().Str("data_dir", cfg.DataDir).Str("network", net.Name).Msg("vault opened")
	return v, nil
}

// OpenFromConfig initializes logging and opens a vault talking to the
// endpoints named in cfg.
func OpenFromConfig(cfg config.Config) (*Vault, error) {
	log.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile)
	net, err := wallet.GetNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	return Open(cfg, Deps{
		TBC:      network.NewTBCClient(cfg.ChainAPIURL, cfg.HTTPTimeout),
		BTC:      network.NewBTCClient(cfg.BTCAPIURL, cfg.HTTPTimeout),
		Cosign:   cosign.NewHTTPClient(cfg.CosignURL, cfg.HTTPTimeout),
		Resolver: paymail.NewResolver(net, "", cfg.HTTPTimeout),
	})
}

// Close closes the stores.
func (v *Vault) Close() error {
	herr := v.history.Close()
	if err := v.store.Close(); err != nil {
		return err
	}
	return herr
}

// Network returns the network the vault was opened for.
func (v *Vault) Network() *wallet.Network { return v.network }

// LoadAccount fills acct's cache with the outputs persisted for its
// address.
func (v *Vault) LoadAccount(acct *wallet.AccountContext) error {
	list, err := v.store.LoadUTXOs(acct.Address())
	if err != nil {
		return err
	}
	acct.UTXOs.Replace(list)
	return nil
}

// Refresh folds the chain's listing of acct's outputs into its cache.
func (v *Vault) Refresh(ctx context.Context, acct *wallet.AccountContext) error {
	r, err := v.reconciler(acct)
	if err != nil {
		return err
	}
	return r.Refresh(ctx, acct)
}

// History returns acct's rows of kind, newest first.
func (v *Vault) History(acct *wallet.AccountContext, kind store.HistoryKind, limit, offset int) ([]*store.HistoryRow, error) {
	return v.history.ListHistory(kind, acct.Address(), limit, offset)
}

func (v *Vault) policy() fee.NativePolicy {
	return fee.NativePolicy{FlatFee: fee.DefaultNativeFlatFee, RatePerKB: v.cfg.FeeRateSatPerKB}
}

func (v *Vault) reconciler(acct *wallet.AccountContext) (*broadcast.Reconciler, error) {
	if !acct.Type.IsBTC() {
		return v.tbc, nil
	}
	if v.btc == nil {
		return nil, fmt.Errorf("%w: BTC chain service", ErrOffline)
	}
	return v.btc, nil
}

// withWriteLock runs fn holding both the process and data directory
// locks.
func (v *Vault) withWriteLock(fn func() error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	fl, err := lockDataDir(filepath.Join(v.cfg.DataDir, lockFileName), true)
	if err != nil {
		return err
	}
	defer unlockDataDir(fl)
	return fn()
}
