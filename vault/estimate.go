package vault

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/wallet"
)

// Estimator coalesces rapid edits of a send form into one estimate. Every
// Update gets a larger request id, and a result is kept only when its id
// is newer than the one already held, so a slow estimate can never
// replace a fresher one.
type Estimator struct {
	v    *Vault
	acct *wallet.AccountContext
	ctx  context.Context

	debounced func(func())
	onUpdate  func(*PendingTransaction, error)

	mu        sync.Mutex
	requested uint64
	applied   uint64
	pending   *PendingTransaction
	err       error
}

// NewEstimator returns an estimator for acct. A zero wait uses the
// configured debounce. onUpdate, if set, is called after each applied
// result.
func (v *Vault) NewEstimator(ctx context.Context, acct *wallet.AccountContext, wait time.Duration, onUpdate func(*PendingTransaction, error)) *Estimator {
	if wait <= 0 {
		wait = v.cfg.EstimateDebounce
	}
	return &Estimator{
		v:         v,
		acct:      acct,
		ctx:       ctx,
		debounced: debounce.New(wait),
		onUpdate:  onUpdate,
	}
}

// Update schedules an estimate of req after the form has been quiet for
// the debounce interval. It returns the request id.
func (e *Estimator) Update(req SendRequest) uint64 {
	e.mu.Lock()
	e.requested++
	id := e.requested
	e.mu.Unlock()

	e.debounced(func() {
		p, err := e.v.Estimate(e.ctx, e.acct, req)
		e.apply(id, p, err)
	})
	return id
}

// apply stores a result unless a newer one is already held.
func (e *Estimator) apply(id uint64, p *PendingTransaction, err error) bool {
	e.mu.Lock()
	if id <= e.applied {
		e.mu.Unlock()
		log.Wallet.Debug().Uint64("request", id).Msg("discarding stale estimate")
		return false
	}
	e.applied = id
	if p != nil {
		p.RequestID = id
	}
	e.pending, e.err = p, err
	cb := e.onUpdate
	e.mu.Unlock()

	if cb != nil {
		cb(p, err)
	}
	return true
}

// Pending returns the latest applied estimate without consuming it.
func (e *Estimator) Pending() (*PendingTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending, e.err
}

// Take returns the latest estimate and clears it, so it is submitted at
// most once.
func (e *Estimator) Take() *PendingTransaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pending
	e.pending, e.err = nil, nil
	return p
}

// Submit broadcasts the latest estimate.
func (e *Estimator) Submit(ctx context.Context) (string, error) {
	return e.v.Submit(ctx, e.acct, e.Take())
}
