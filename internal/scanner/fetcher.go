package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/dexscan-data/internal/api"
	"github.com/rickgao/dexscan-data/internal/model"
)

// Fetcher errors.
var (
	// ErrNoMorePages means the last page for this parameter set was
	// already fetched (a short page ends pagination).
	ErrNoMorePages = errors.New("no more pages")

	// ErrFetchInFlight suppresses a duplicate request while a page fetch
	// is already running.
	ErrFetchInFlight = errors.New("fetch already in flight")

	// ErrParamsChanged means the parameters were reset while the fetch
	// was in flight; the result was discarded.
	ErrParamsChanged = errors.New("params changed during fetch")
)

// PageGetter is the REST collaborator surface the fetcher needs.
type PageGetter interface {
	GetScannerPage(ctx context.Context, params model.ScannerParams, page int) (*api.ScannerPage, error)
}

// Fetcher retrieves ranked, filtered, paginated snapshots and exposes them
// as an incrementally-growing sequence: page N+1 is requested only on
// explicit demand. Changing parameters invalidates all fetched pages and
// restarts pagination from page 1.
type Fetcher struct {
	client PageGetter
	logger *slog.Logger

	mu       sync.Mutex
	params   model.ScannerParams
	next     int
	done     bool
	inflight bool
	epoch    int // Bumped on Reset; in-flight results from older epochs are discarded
}

// NewFetcher creates a fetcher positioned at page 1 of the given view.
func NewFetcher(client PageGetter, params model.ScannerParams, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		logger: logger,
		params: params,
		next:   1,
	}
}

// Reset switches to a new parameter set, discarding all pagination state.
// Any fetch currently in flight will have its result dropped.
func (f *Fetcher) Reset(params model.ScannerParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = params
	f.next = 1
	f.done = false
	f.epoch++
}

// Params returns the current parameter set.
func (f *Fetcher) Params() model.ScannerParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// HasMore reports whether another page may be requested.
func (f *Fetcher) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.done
}

// FetchNext fetches the next page. Returns the page and its 1-based page
// number. ErrFetchInFlight and ErrNoMorePages are expected steady-state
// conditions, not failures.
func (f *Fetcher) FetchNext(ctx context.Context) (*api.ScannerPage, int, error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return nil, 0, ErrNoMorePages
	}
	if f.inflight {
		f.mu.Unlock()
		return nil, 0, ErrFetchInFlight
	}
	f.inflight = true
	page := f.next
	params := f.params
	epoch := f.epoch
	f.mu.Unlock()

	resp, err := f.client.GetScannerPage(ctx, params, page)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight = false

	if epoch != f.epoch {
		return nil, 0, ErrParamsChanged
	}
	if err != nil {
		return nil, 0, err
	}

	if len(resp.Rows) < PageSize {
		f.done = true
	}
	f.next = page + 1

	f.logger.Debug("fetched scanner page",
		"page", page,
		"rows", len(resp.Rows),
		"last", f.done,
	)

	return resp, page, nil
}
