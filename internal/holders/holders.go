// Package holders maps card last-4-digits to the family member who owns the
// card.
package holders

import (
	"sync"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Lookup resolves a card's last 4 digits to an account holder.
type Lookup interface {
	HolderByCard(last4 int) (model.AccountHolder, bool)
}

// Directory provides in-memory lookup over the configured account holders.
type Directory struct {
	byCard map[int]model.AccountHolder
}

// NewDirectory creates a Directory from a slice of holders.
func NewDirectory(hs []model.AccountHolder) *Directory {
	byCard := make(map[int]model.AccountHolder, len(hs))
	for _, h := range hs {
		byCard[h.LastFour] = h
	}
	return &Directory{byCard: byCard}
}

// HolderByCard returns the holder owning the card with the given last 4
// digits.
func (d *Directory) HolderByCard(last4 int) (model.AccountHolder, bool) {
	h, ok := d.byCard[last4]
	return h, ok
}

// Resolver memoizes successful holder lookups for the duration of one import
// or reprocess run. Failed lookups are not cached, so an unknown card is
// re-queried each time it appears. The cache is scoped to the run: create a
// fresh Resolver per call so concurrent runs for different accounts cannot
// cross-contaminate.
type Resolver struct {
	dir Lookup

	mu    sync.Mutex
	cache map[int]model.AccountHolder
}

// NewResolver creates a Resolver over a directory.
func NewResolver(dir Lookup) *Resolver {
	return &Resolver{dir: dir, cache: make(map[int]model.AccountHolder)}
}

// Resolve returns the holder name for a card, or "" when last4 is nil or no
// holder is known.
func (r *Resolver) Resolve(last4 *int) string {
	if last4 == nil {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.cache[*last4]; ok {
		return h.Name
	}
	h, ok := r.dir.HolderByCard(*last4)
	if !ok {
		return ""
	}
	r.cache[*last4] = h
	return h.Name
}
