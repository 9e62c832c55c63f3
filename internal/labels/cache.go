// Package labels resolves actor ids to display labels in one batched
// store round-trip. Labels follow a fixed fallback precedence and are
// cached for the lifetime of the enclosing session.
package labels

import (
	"context"
	"sync"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/store"
)

// Label picks an actor's display label: account number, then full
// name, then email, then username, then the raw id.
func Label(a core.Actor) string {
	switch {
	case a.AccountNumber != "":
		return a.AccountNumber
	case a.FullName != "":
		return a.FullName
	case a.Email != "":
		return a.Email
	case a.Username != "":
		return a.Username
	}
	return a.ID
}

// Cache is a merge-only id-to-label map shared across concurrent view
// resolutions. Entries are added, never evicted; a repeated id takes
// its most recently fetched label. Resolution never fails outward: a
// store error or an unknown id resolves to the raw id.
type Cache struct {
	mu     sync.RWMutex
	store  store.Store
	logger *log.Logger
	byID   map[string]string
}

func NewCache(st store.Store, logger *log.Logger) *Cache {
	return &Cache{
		store:  st,
		logger: logger.WithComponent(log.ComponentLabels),
		byID:   make(map[string]string),
	}
}

// Resolve returns a label for every id in ids. Already-cached ids are
// served from memory; the rest are fetched in one batch.
func (c *Cache) Resolve(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	var missing []string

	c.mu.RLock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := out[id]; dup {
			continue
		}
		if label, ok := c.byID[id]; ok {
			out[id] = label
		} else {
			out[id] = id
			missing = append(missing, id)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out
	}

	actors, err := c.store.SelectActors(ctx, store.Query{
		Where: store.In(store.FieldID, missing),
		Limit: len(missing),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "Label batch lookup failed, falling back to raw ids",
			log.FieldRows, len(missing), log.FieldError, err)
		return out
	}

	c.mu.Lock()
	for _, a := range actors {
		label := Label(a)
		c.byID[a.ID] = label
		out[a.ID] = label
	}
	c.mu.Unlock()
	return out
}

// Size returns the number of cached labels.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
