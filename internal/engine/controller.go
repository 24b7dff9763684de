// Package engine wires the data core together: the snapshot fetcher, the
// row collection, the subscription registry, the merge engine, and the
// streaming transport, and runs the control decisions between them
// (reset on parameter change, reconcile after every fetch and merge cycle,
// restore subscriptions on reconnect).
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/dexscan-data/internal/config"
	"github.com/rickgao/dexscan-data/internal/merge"
	"github.com/rickgao/dexscan-data/internal/model"
	"github.com/rickgao/dexscan-data/internal/scanner"
	"github.com/rickgao/dexscan-data/internal/stream"
	"github.com/rickgao/dexscan-data/internal/subs"
)

// Transport is the streaming collaborator surface the controller needs.
// *stream.Transport satisfies it; tests inject a fake.
type Transport interface {
	SetHandlers(stream.Handlers)
	OnRestore(func())
	OnReconnected(func())
	Connect(ctx context.Context)
	Disconnect()
	Send(event string, data any)
	Status() stream.Status
}

// Controller owns the data-synchronization control loop.
type Controller struct {
	logger    *slog.Logger
	client    scanner.PageGetter
	transport Transport

	coll     *scanner.Collection
	fetcher  *scanner.Fetcher
	registry *subs.Registry
	merger   *merge.Engine

	mu     sync.Mutex
	ctx    context.Context
	params model.ScannerParams
	prices map[string]float64 // Latest wpeg reference prices by chain
}

// New creates a controller for the given view parameters.
func New(cfg config.MergeConfig, client scanner.PageGetter, transport Transport, params model.ScannerParams, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	coll := scanner.NewCollection()
	c := &Controller{
		logger:    logger,
		client:    client,
		transport: transport,
		coll:      coll,
		fetcher:   scanner.NewFetcher(client, params, logger),
		registry:  subs.NewRegistry(transport, logger),
		merger:    merge.NewEngine(cfg, coll, logger),
		params:    params,
		prices:    make(map[string]float64),
	}
	return c
}

// Start connects the feed, loads the first page, and begins merging.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.transport.SetHandlers(stream.Handlers{
		ScannerPairs: c.handleScannerPairs,
		Tick:         c.merger.BufferTick,
		PairStats:    c.merger.BufferStats,
		Prices:       c.handlePrices,
	})
	c.transport.OnRestore(c.registry.RestoreAll)
	c.transport.OnReconnected(c.refreshFirstPage)
	c.merger.OnChange(c.reconcile)

	if err := c.merger.Start(ctx); err != nil {
		return err
	}

	c.transport.Connect(ctx)

	// The filter subscription is fire-and-forget: if the socket is not
	// open yet the frame is dropped and RestoreAll re-sends it after the
	// settle delay.
	c.registry.SetFilter(c.currentParams())

	// Initial page. A failure here is not fatal; the push refresh will
	// populate the first page once the stream is up.
	if err := c.LoadMore(ctx); err != nil {
		c.logger.Warn("initial page load failed", "error", err)
	}

	c.logger.Info("controller started", "rank_by", c.currentParams().RankBy)
	return nil
}

// Stop tears down the controller: clean transport close (suppressing
// reconnect) and a final merge flush.
func (c *Controller) Stop(ctx context.Context) error {
	c.transport.Disconnect()
	return c.merger.Stop(ctx)
}

// LoadMore fetches the next page on explicit demand. An in-flight fetch or
// exhausted pagination is not an error.
func (c *Controller) LoadMore(ctx context.Context) error {
	resp, page, err := c.fetcher.FetchNext(ctx)
	if err != nil {
		if errors.Is(err, scanner.ErrNoMorePages) ||
			errors.Is(err, scanner.ErrFetchInFlight) ||
			errors.Is(err, scanner.ErrParamsChanged) {
			c.logger.Debug("load more skipped", "reason", err)
			return nil
		}
		return err
	}

	c.merger.ApplyPage(page, resp.Rows)
	return nil
}

// SetParams switches to a new ranking/filter parameter set. This is a full
// reset: pagination restarts from page 1 and the collection, registry, and
// top-level scanner subscription are all recreated against the new set.
func (c *Controller) SetParams(ctx context.Context, params model.ScannerParams) error {
	c.mu.Lock()
	if c.params.Equal(params) {
		c.mu.Unlock()
		return nil
	}
	c.params = params
	c.mu.Unlock()

	c.logger.Info("scanner parameters changed, resetting view",
		"rank_by", params.RankBy,
		"order", params.Order,
		"chain", params.Chain,
	)

	c.registry.Clear()
	c.fetcher.Reset(params)
	c.merger.ResetAll(nil)
	c.registry.SetFilter(params)

	return c.LoadMore(ctx)
}

// Rows returns the current flat ranked view.
func (c *Controller) Rows() []model.Row {
	return c.coll.Flat()
}

// Collection exposes the authoritative store (read-only use).
func (c *Controller) Collection() *scanner.Collection {
	return c.coll
}

// Registry exposes the subscription registry (read-only use).
func (c *Controller) Registry() *subs.Registry {
	return c.registry
}

// Merger exposes the merge engine.
func (c *Controller) Merger() *merge.Engine {
	return c.merger
}

// ConnectionStatus returns the transport status for the UI layer.
func (c *Controller) ConnectionStatus() stream.Status {
	return c.transport.Status()
}

// RefPrice returns the latest wrapped-native reference price for a chain.
func (c *Controller) RefPrice(chain string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.prices[chain]
	return v, ok
}

// currentParams returns a copy of the active parameter set.
func (c *Controller) currentParams() model.ScannerParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// reconcile converges the registry onto the current collection membership.
func (c *Controller) reconcile() {
	c.registry.Reconcile(c.coll.Keys())
}

// handleScannerPairs applies a push-driven full refresh of the first page.
func (c *Controller) handleScannerPairs(ev model.ScannerPairsEvent) {
	c.merger.ApplyRefresh(ev.Results.ToRows())
}

// handlePrices retains the latest reference price table. Consumed but never
// merged into rows.
func (c *Controller) handlePrices(ev model.PricesEvent) {
	c.mu.Lock()
	for chain, price := range ev.Prices {
		c.prices[chain] = price
	}
	c.mu.Unlock()
}

// refreshFirstPage re-syncs the first page after a reconnection. The
// registry has already replayed the scanner filter; this refetch covers
// rank movement that happened while the stream was down.
func (c *Controller) refreshFirstPage() {
	c.mu.Lock()
	ctx := c.ctx
	params := c.params
	c.mu.Unlock()
	if ctx == nil {
		return
	}

	go func() {
		resp, err := c.client.GetScannerPage(ctx, params, 1)
		if err != nil {
			c.logger.Warn("post-reconnect refresh failed", "error", err)
			return
		}
		c.merger.ApplyRefresh(resp.Rows)
	}()
}
