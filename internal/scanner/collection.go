package scanner

import (
	"sync"

	"github.com/rickgao/dexscan-data/internal/model"
)

// PageSize is the fixed scanner page size.
const PageSize = 100

// position locates a row inside the paged store.
type position struct {
	page int // 0-based page index
	off  int // Offset within the page
}

// Collection is the authoritative row store: an ordered sequence of ranked
// pages plus an identity index for O(1) lookup. The flat view's order is
// page concatenation order; the index contains exactly the identities of
// the flat view, one entry per pair address.
//
// Mutation funnels through the merge engine; other components only read.
type Collection struct {
	mu    sync.RWMutex
	pages [][]model.Row
	index map[string]position
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		index: make(map[string]position),
	}
}

// ReplaceAll discards everything and re-pages the given ranked rows.
func (c *Collection) ReplaceAll(rows []model.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages = c.pages[:0]
	for start := 0; start < len(rows); start += PageSize {
		end := start + PageSize
		if end > len(rows) {
			end = len(rows)
		}
		page := make([]model.Row, end-start)
		copy(page, rows[start:end])
		c.pages = append(c.pages, page)
	}
	c.normalizeLocked()
}

// SetPage replaces one ranked page (numbered from 1). Appending past the
// last page extends the sequence; gaps are not allowed and are clamped to
// an append. Duplicate identities introduced across pages are resolved in
// favor of the earliest rank position.
func (c *Collection) SetPage(page int, rows []model.Row) {
	if page < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := page - 1
	if idx > len(c.pages) {
		idx = len(c.pages)
	}
	pageCopy := make([]model.Row, len(rows))
	copy(pageCopy, rows)

	if idx == len(c.pages) {
		c.pages = append(c.pages, pageCopy)
	} else {
		c.pages[idx] = pageCopy
	}
	c.normalizeLocked()
}

// ApplyUpdates replaces rows in place by identity, preserving rank order.
// The page structure is rebuilt so readers holding earlier Flat() copies
// are never mutated underneath. Unknown identities are ignored. Returns
// the number of rows replaced.
func (c *Collection) ApplyUpdates(updated map[string]model.Row) int {
	if len(updated) == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	applied := 0
	fresh := make([][]model.Row, len(c.pages))
	for p, page := range c.pages {
		newPage := make([]model.Row, len(page))
		copy(newPage, page)
		for i, row := range newPage {
			if u, ok := updated[row.PairAddress]; ok {
				newPage[i] = u
				applied++
			}
		}
		fresh[p] = newPage
	}
	c.pages = fresh
	c.rebuildIndexLocked()
	return applied
}

// Get returns a row by pair address.
func (c *Collection) Get(pair string) (model.Row, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.index[pair]
	if !ok {
		return model.Row{}, false
	}
	return c.pages[pos.page][pos.off], true
}

// Flat returns a copy of all pages concatenated in rank order.
func (c *Collection) Flat() []model.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Row, 0, len(c.index))
	for _, page := range c.pages {
		out = append(out, page...)
	}
	return out
}

// Keys returns the subscription keys of every row, by pair address.
func (c *Collection) Keys() map[string]model.PairKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make(map[string]model.PairKey, len(c.index))
	for _, page := range c.pages {
		for _, row := range page {
			keys[row.PairAddress] = row.Key()
		}
	}
	return keys
}

// Contains reports whether a pair address is present.
func (c *Collection) Contains(pair string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[pair]
	return ok
}

// Len returns the total row count.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

// PageCount returns the number of ranked pages.
func (c *Collection) PageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

// normalizeLocked enforces one row per pair address (earliest rank wins)
// and rebuilds the identity index. Caller must hold the write lock.
func (c *Collection) normalizeLocked() {
	seen := make(map[string]struct{})
	for p, page := range c.pages {
		kept := page[:0]
		for _, row := range page {
			if _, dup := seen[row.PairAddress]; dup {
				continue
			}
			seen[row.PairAddress] = struct{}{}
			kept = append(kept, row)
		}
		c.pages[p] = kept
	}
	c.rebuildIndexLocked()
}

func (c *Collection) rebuildIndexLocked() {
	c.index = make(map[string]position, len(c.index))
	for p, page := range c.pages {
		for i, row := range page {
			c.index[row.PairAddress] = position{page: p, off: i}
		}
	}
}
