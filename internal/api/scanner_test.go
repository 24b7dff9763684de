package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/dexscan-data/internal/model"
)

func scannerBody(pairs ...model.PairWire) []byte {
	b, _ := json.Marshal(model.ScannerResponseWire{Pairs: pairs, TotalRows: len(pairs)})
	return b
}

func TestGetScannerPage(t *testing.T) {
	var gotQuery atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scanner" {
			t.Errorf("path = %q, want /scanner", r.URL.Path)
		}
		gotQuery.Store(r.URL.Query())
		w.Write(scannerBody(
			model.PairWire{PairAddress: "0xabc", Price: "0.001"},
			model.PairWire{PairAddress: "0xdef", Price: "2"},
			model.PairWire{Price: "1"}, // no identity, dropped
		))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	params := model.ScannerParams{RankBy: model.RankByVolume, Order: model.OrderDesc}

	page, err := client.GetScannerPage(context.Background(), params, 2)
	if err != nil {
		t.Fatalf("GetScannerPage failed: %v", err)
	}

	if len(page.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2 (unparseable row dropped)", len(page.Rows))
	}
	if page.Rows[0].PairAddress != "0xabc" {
		t.Errorf("Rows[0] = %q, want 0xabc", page.Rows[0].PairAddress)
	}
	if page.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3", page.TotalRows)
	}

	q := gotQuery.Load().(url.Values)
	if got := q.Get("page"); got != "2" {
		t.Errorf("page query = %q, want 2", got)
	}
	if got := q.Get("rankBy"); got != "volume" {
		t.Errorf("rankBy query = %q, want volume", got)
	}
}

func TestGetScannerPageOmitsPageOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("page") {
			t.Error("page=1 should be omitted")
		}
		w.Write(scannerBody())
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.GetScannerPage(context.Background(), model.DefaultScannerParams(), 1); err != nil {
		t.Fatalf("GetScannerPage failed: %v", err)
	}
}

func TestGetScannerPageRetriesServerError(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(scannerBody(model.PairWire{PairAddress: "0xabc", Price: "1"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetries(2, 10*time.Millisecond))

	page, err := client.GetScannerPage(context.Background(), model.DefaultScannerParams(), 1)
	if err != nil {
		t.Fatalf("GetScannerPage failed: %v", err)
	}
	if len(page.Rows) != 1 {
		t.Errorf("len(Rows) = %d, want 1", len(page.Rows))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGetScannerPageClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetries(3, 10*time.Millisecond))

	_, err := client.GetScannerPage(context.Background(), model.DefaultScannerParams(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retryable)", calls.Load())
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.IsRetryable() {
		t.Error("400 reported retryable")
	}
}
