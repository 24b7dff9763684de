package merge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/dexscan-data/internal/config"
	"github.com/rickgao/dexscan-data/internal/model"
	"github.com/rickgao/dexscan-data/internal/scanner"
)

// Metrics counts merge activity since the engine was created.
type Metrics struct {
	FlushCycles   int64 // Flush intervals that ran
	RowsApplied   int64 // Recomputed rows written to the collection
	Dropped       int64 // Buffered events for identities not in the collection
	TicksBuffered int64
	StatsBuffered int64
}

// Engine accumulates incremental events and periodically folds them into
// the Row Collection. It exclusively owns collection mutation; snapshot
// application and buffered-update application are the only write paths.
type Engine struct {
	cfg    config.MergeConfig
	coll   *scanner.Collection
	logger *slog.Logger

	// Pending update buffers, keyed by pair address. Later events for the
	// same identity overwrite the pending slot (last-write-wins within a
	// flush interval).
	mu      sync.Mutex
	ticks   map[string]model.TickEvent
	stats   map[string]model.PairStatsEvent
	metrics Metrics

	// onChange runs after any mutation that may affect collection
	// membership or row content; the owner uses it to reconcile
	// subscriptions.
	onChange func()

	// Lifecycle
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	flushTicker *time.Ticker
}

// NewEngine creates a merge engine over the given collection.
func NewEngine(cfg config.MergeConfig, coll *scanner.Collection, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		coll:   coll,
		logger: logger,
		ticks:  make(map[string]model.TickEvent),
		stats:  make(map[string]model.PairStatsEvent),
	}
}

// OnChange registers the post-apply hook. Must be set before Start.
func (e *Engine) OnChange(f func()) {
	e.mu.Lock()
	e.onChange = f
	e.mu.Unlock()
}

// Start begins the periodic flush loop.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.flushTicker = time.NewTicker(e.cfg.FlushInterval)

	e.wg.Add(1)
	go e.flushLoop()

	e.logger.Info("merge engine started",
		"flush_interval", e.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the engine, applying any remaining buffered
// updates.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	if e.flushTicker != nil {
		e.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("merge engine stopped")
	case <-ctx.Done():
		e.logger.Warn("merge engine stop timed out")
	}

	// Final flush
	e.FlushAndApply()

	return nil
}

// Stats returns current metrics.
func (e *Engine) Stats() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// BufferTick buffers a tick event, overwriting any pending tick for the
// same pair.
func (e *Engine) BufferTick(ev model.TickEvent) {
	if ev.Pair.Pair == "" {
		return
	}
	e.mu.Lock()
	e.ticks[ev.Pair.Pair] = ev
	e.metrics.TicksBuffered++
	e.mu.Unlock()
}

// BufferStats buffers a stats event, overwriting any pending stats for the
// same pair.
func (e *Engine) BufferStats(ev model.PairStatsEvent) {
	if ev.Pair.PairAddress == "" {
		return
	}
	e.mu.Lock()
	e.stats[ev.Pair.PairAddress] = ev
	e.metrics.StatsBuffered++
	e.mu.Unlock()
}

// flushLoop applies buffered updates on each flush interval.
func (e *Engine) flushLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.flushTicker.C:
			e.FlushAndApply()
		}
	}
}

// FlushAndApply atomically snapshots and clears both buffers, recomputes
// every buffered row that exists in the collection, and replaces the
// collection contents. Rows not in the collection are dropped silently;
// a malformed payload leaves its row unmodified. Never panics, never
// blocks the feed.
func (e *Engine) FlushAndApply() {
	e.mu.Lock()
	ticks := e.ticks
	stats := e.stats
	e.ticks = make(map[string]model.TickEvent)
	e.stats = make(map[string]model.PairStatsEvent)
	e.metrics.FlushCycles++
	onChange := e.onChange
	e.mu.Unlock()

	if len(ticks) == 0 && len(stats) == 0 {
		return
	}

	updated := make(map[string]model.Row, len(ticks)+len(stats))
	dropped := 0

	for pair, ev := range ticks {
		row, ok := e.coll.Get(pair)
		if !ok {
			dropped++
			continue
		}
		if next, changed := applyTick(row, ev); changed {
			updated[pair] = next
		}
	}

	for pair, ev := range stats {
		base, ok := updated[pair]
		if !ok {
			var inColl bool
			base, inColl = e.coll.Get(pair)
			if !inColl {
				dropped++
				continue
			}
		}
		updated[pair] = applyStats(base, ev)
	}

	applied := e.coll.ApplyUpdates(updated)

	e.mu.Lock()
	e.metrics.RowsApplied += int64(applied)
	e.metrics.Dropped += int64(dropped)
	e.mu.Unlock()

	if dropped > 0 {
		e.logger.Debug("dropped updates for unknown pairs", "count", dropped)
	}
	if applied > 0 && onChange != nil {
		onChange()
	}
}

// ResetAll replaces the whole collection with a freshly supplied ranked
// list (initial load or filter/sort change). A full refresh supersedes any
// in-flight partial update, so both pending buffers are cleared.
func (e *Engine) ResetAll(rows []model.Row) {
	e.clearBuffers()
	e.coll.ReplaceAll(rows)
	e.notifyChange()
}

// ApplyRefresh replaces the first ranked page from a scanner-pairs push
// frame, clearing both pending buffers.
func (e *Engine) ApplyRefresh(rows []model.Row) {
	e.clearBuffers()
	e.coll.SetPage(1, rows)
	e.notifyChange()
}

// ApplyPage installs one fetched page. Pending buffers are kept: a page
// load does not supersede in-flight partial updates for other rows.
func (e *Engine) ApplyPage(page int, rows []model.Row) {
	e.coll.SetPage(page, rows)
	e.notifyChange()
}

func (e *Engine) clearBuffers() {
	e.mu.Lock()
	e.ticks = make(map[string]model.TickEvent)
	e.stats = make(map[string]model.PairStatsEvent)
	e.mu.Unlock()
}

func (e *Engine) notifyChange() {
	e.mu.Lock()
	onChange := e.onChange
	e.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}
