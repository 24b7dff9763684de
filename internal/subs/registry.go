// Package subs implements the Subscription Registry: it tracks which rows
// currently have active fine-grained subscriptions on the streaming feed
// and keeps that set converged with the Row Collection membership.
package subs

import (
	"log/slog"
	"sync"

	"github.com/rickgao/dexscan-data/internal/model"
	"github.com/rickgao/dexscan-data/internal/stream"
)

// Kind distinguishes the two per-row streams.
type Kind int

const (
	KindTick Kind = iota
	KindStats
)

func (k Kind) String() string {
	if k == KindStats {
		return "stats"
	}
	return "tick"
}

// subscribe/unsubscribe event tags per kind.
func (k Kind) subscribeEvent() string {
	if k == KindStats {
		return stream.EventSubscribeStats
	}
	return stream.EventSubscribePair
}

func (k Kind) unsubscribeEvent() string {
	if k == KindStats {
		return stream.EventUnsubscribeStats
	}
	return stream.EventUnsubscribePair
}

// Sender is the outbound half of the streaming transport.
type Sender interface {
	Send(event string, data any)
}

type subKey struct {
	pair string
	kind Kind
}

// Registry tracks active (pair, kind) subscriptions. All operations are
// idempotent: duplicate subscribes and unsubscribes of absent records are
// no-ops. At most one subscription exists per (pair, kind).
type Registry struct {
	sender Sender
	logger *slog.Logger

	mu     sync.Mutex
	active map[subKey]model.PairKey
	filter *model.ScannerParams // Last-known top-level scanner filter
}

// NewRegistry creates an empty registry sending through the given transport.
func NewRegistry(sender Sender, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sender: sender,
		logger: logger,
		active: make(map[subKey]model.PairKey),
	}
}

// SubscribeRow opens the tick and stats streams for a row. Kinds already
// recorded are skipped.
func (r *Registry) SubscribeRow(key model.PairKey) {
	for _, kind := range []Kind{KindTick, KindStats} {
		r.subscribe(key, kind)
	}
}

func (r *Registry) subscribe(key model.PairKey, kind Kind) {
	r.mu.Lock()
	sk := subKey{pair: key.Pair, kind: kind}
	if _, exists := r.active[sk]; exists {
		r.mu.Unlock()
		return
	}
	r.active[sk] = key
	r.mu.Unlock()

	r.sender.Send(kind.subscribeEvent(), key)
}

// UnsubscribeRow closes both streams for a pair. Absent records are no-ops.
func (r *Registry) UnsubscribeRow(pair string) {
	for _, kind := range []Kind{KindTick, KindStats} {
		r.mu.Lock()
		sk := subKey{pair: pair, kind: kind}
		key, exists := r.active[sk]
		if exists {
			delete(r.active, sk)
		}
		r.mu.Unlock()

		if exists {
			r.sender.Send(kind.unsubscribeEvent(), key)
		}
	}
}

// SetFilter records and sends the top-level scanner filter subscription.
func (r *Registry) SetFilter(params model.ScannerParams) {
	r.mu.Lock()
	p := params
	r.filter = &p
	r.mu.Unlock()

	r.sender.Send(stream.EventScannerFilter, params)
}

// ClearFilter unsubscribes the top-level scanner filter, if one is set.
func (r *Registry) ClearFilter() {
	r.mu.Lock()
	filter := r.filter
	r.filter = nil
	r.mu.Unlock()

	if filter != nil {
		r.sender.Send(stream.EventUnsubScannerFilter, *filter)
	}
}

// RestoreAll re-sends the last-known scanner filter plus a subscribe for
// every recorded subscription. Used exclusively after reconnection: the
// server forgot everything, the registry did not.
func (r *Registry) RestoreAll() {
	r.mu.Lock()
	filter := r.filter
	keys := make(map[subKey]model.PairKey, len(r.active))
	for sk, key := range r.active {
		keys[sk] = key
	}
	r.mu.Unlock()

	if filter != nil {
		r.sender.Send(stream.EventScannerFilter, *filter)
	}
	for sk, key := range keys {
		r.sender.Send(sk.kind.subscribeEvent(), key)
	}

	r.logger.Info("restored subscriptions", "count", len(keys))
}

// Reconcile converges the registry onto the current Row Collection
// membership: every recorded pair absent from current is unsubscribed,
// every present pair lacking a record is subscribed. Run after every
// successful fetch or merge cycle; dangling subscriptions waste upstream
// resources and can resurface stale updates when an identity is reused.
func (r *Registry) Reconcile(current map[string]model.PairKey) {
	// Sweep garbage first.
	r.mu.Lock()
	var stale []string
	seen := make(map[string]struct{}, len(r.active))
	for sk := range r.active {
		if _, ok := current[sk.pair]; !ok {
			if _, dup := seen[sk.pair]; !dup {
				seen[sk.pair] = struct{}{}
				stale = append(stale, sk.pair)
			}
		}
	}
	r.mu.Unlock()

	for _, pair := range stale {
		r.UnsubscribeRow(pair)
	}

	for _, key := range current {
		r.SubscribeRow(key)
	}
}

// Clear unsubscribes every recorded subscription and the scanner filter.
// Used when the ranking/filter parameters change and the whole view is
// being recreated.
func (r *Registry) Clear() {
	r.mu.Lock()
	pairs := make(map[string]struct{}, len(r.active))
	for sk := range r.active {
		pairs[sk.pair] = struct{}{}
	}
	r.mu.Unlock()

	for pair := range pairs {
		r.UnsubscribeRow(pair)
	}
	r.ClearFilter()
}

// Count returns the number of recorded (pair, kind) subscriptions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Has reports whether a subscription is recorded.
func (r *Registry) Has(pair string, kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[subKey{pair: pair, kind: kind}]
	return ok
}
