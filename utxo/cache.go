package utxo

import (
	"sync"
)

// Cache is the account's local view of its outputs. Writers never mutate the
// current list; they build a replacement and swap it in, so a slice returned
// by Snapshot stays valid while another flow rewrites the cache.
type Cache struct {
	mu    sync.RWMutex
	utxos []UTXO
}

// NewCache creates a cache seeded with initial.
func NewCache(initial []UTXO) *Cache {
	c := &Cache{}
	c.utxos = append([]UTXO(nil), initial...)
	return c
}

// Snapshot returns every entry, spent ones included. Callers must not modify it.
func (c *Cache) Snapshot() []UTXO {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.utxos
}

// Available returns the entries not flagged spent.
func (c *Cache) Available() []UTXO {
	return Unspent(c.Snapshot())
}

// Balance is the total value of the available entries.
func (c *Cache) Balance() uint64 {
	return Total(c.Available())
}

// Replace swaps in list wholesale.
func (c *Cache) Replace(list []UTXO) {
	next := append([]UTXO(nil), list...)
	c.mu.Lock()
	c.utxos = next
	c.mu.Unlock()
}

// Refresh folds a fresh network listing into the cache. Outputs the network
// still reports keep a local spent flag if they had one; outputs the network
// no longer reports are kept as spent history.
func (c *Cache) Refresh(fresh []UTXO) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := make(map[string]UTXO, len(c.utxos))
	for _, u := range c.utxos {
		old[u.Outpoint()] = u
	}

	next := make([]UTXO, 0, len(fresh)+len(c.utxos))
	seen := make(map[string]bool, len(fresh))
	for _, u := range fresh {
		key := u.Outpoint()
		if seen[key] {
			continue
		}
		seen[key] = true
		if prev, ok := old[key]; ok && prev.IsSpent {
			u.IsSpent = true
		}
		next = append(next, u)
	}
	for _, u := range c.utxos {
		if seen[u.Outpoint()] {
			continue
		}
		u.IsSpent = true
		next = append(next, u)
	}
	c.utxos = next
}

// MarkSpent flags every cached entry whose outpoint appears in spent and
// returns how many entries changed.
func (c *Cache) MarkSpent(spent []UTXO) int {
	keys := make(map[string]bool, len(spent))
	for _, u := range spent {
		keys[u.Outpoint()] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]UTXO, len(c.utxos))
	changed := 0
	for i, u := range c.utxos {
		if keys[u.Outpoint()] && !u.IsSpent {
			u.IsSpent = true
			changed++
		}
		next[i] = u
	}
	c.utxos = next
	return changed
}

// Add appends outputs this wallet produced (change, fee splits). Outpoints
// already present are left untouched.
func (c *Cache) Add(produced ...UTXO) {
	c.mu.Lock()
	defer c.mu.Unlock()

	present := make(map[string]bool, len(c.utxos))
	for _, u := range c.utxos {
		present[u.Outpoint()] = true
	}
	next := append(make([]UTXO, 0, len(c.utxos)+len(produced)), c.utxos...)
	for _, u := range produced {
		if present[u.Outpoint()] {
			continue
		}
		present[u.Outpoint()] = true
		next = append(next, u)
	}
	c.utxos = next
}
