package merge

import (
	"testing"
	"time"

	"github.com/rickgao/dexscan-data/internal/config"
	"github.com/rickgao/dexscan-data/internal/model"
	"github.com/rickgao/dexscan-data/internal/scanner"
)

func testEngine(t *testing.T, rows ...model.Row) (*Engine, *scanner.Collection) {
	t.Helper()
	coll := scanner.NewCollection()
	coll.ReplaceAll(rows)
	e := NewEngine(config.MergeConfig{FlushInterval: time.Second}, coll, nil)
	return e, coll
}

func baseRow() model.Row {
	return model.Row{
		PairAddress:  "0xabc",
		TokenAddress: "0xtoken",
		Chain:        "ETH",
		Price:        0.001,
		Volume24h:    1000,
		Buys:         100,
		Sells:        50,
		TotalSupply:  1_000_000,
	}
}

func tick(pair string, swaps ...model.TradeWire) model.TickEvent {
	return model.TickEvent{
		Pair:  model.PairKey{Pair: pair, Token: "0xtoken", Chain: "ETH"},
		Swaps: swaps,
	}
}

func TestFlushAppliesTick(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	// One buy of 10 tokens at 0.002.
	e.BufferTick(tick("0xabc", model.TradeWire{
		Timestamp: 1_700_000_000_000_000,
		Price:     "0.002",
		Amount:    "10",
		TokenIn:   "0xtoken",
	}))
	e.FlushAndApply()

	row, _ := coll.Get("0xabc")
	if row.Price != 0.002 {
		t.Errorf("Price = %v, want 0.002", row.Price)
	}
	if row.MarketCap != 0.002*1_000_000 {
		t.Errorf("MarketCap = %v, want %v", row.MarketCap, 0.002*1_000_000)
	}
	if row.Volume24h != 1000+0.002*10 {
		t.Errorf("Volume24h = %v, want %v", row.Volume24h, 1000+0.002*10)
	}
	if row.Buys != 101 || row.Sells != 50 {
		t.Errorf("Buys/Sells = %d/%d, want 101/50", row.Buys, row.Sells)
	}
}

func TestFlushVolumeAccumulatesPerTrade(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	// Two trades at different prices: volume adds each trade's own
	// price x amount, not the batch amount at the final price.
	e.BufferTick(tick("0xabc",
		model.TradeWire{Timestamp: 1, Price: "2", Amount: "100", TokenIn: "0xtoken"},
		model.TradeWire{Timestamp: 2, Price: "4", Amount: "50", TokenIn: "0xother"},
	))
	e.FlushAndApply()

	row, _ := coll.Get("0xabc")
	if want := 1000 + 2.0*100 + 4.0*50; row.Volume24h != want {
		t.Errorf("Volume24h = %v, want %v", row.Volume24h, want)
	}
	if row.Price != 4 {
		t.Errorf("Price = %v, want 4 (last trade)", row.Price)
	}
	if row.Buys != 101 || row.Sells != 51 {
		t.Errorf("Buys/Sells = %d/%d, want 101/51", row.Buys, row.Sells)
	}
}

func TestFlushCoalescesToLastTick(t *testing.T) {
	// Buffering N events then flushing must equal applying only the last
	// one, except volume and counters which fold within a single event.
	direct, directColl := testEngine(t, baseRow())
	batched, batchedColl := testEngine(t, baseRow())

	last := tick("0xabc", model.TradeWire{Timestamp: 9, Price: "0.005", Amount: "1", TokenIn: "0xtoken"})

	batched.BufferTick(tick("0xabc", model.TradeWire{Timestamp: 1, Price: "0.009", Amount: "500", TokenIn: "0xtoken"}))
	batched.BufferTick(tick("0xabc", model.TradeWire{Timestamp: 5, Price: "0.007", Amount: "300", TokenIn: "0xother"}))
	batched.BufferTick(last)
	batched.FlushAndApply()

	direct.BufferTick(last)
	direct.FlushAndApply()

	got, _ := batchedColl.Get("0xabc")
	want, _ := directColl.Get("0xabc")
	if got != want {
		t.Errorf("coalesced row = %+v, want %+v", got, want)
	}
}

func TestFlushSkipsOutliersAndBadTrades(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	e.BufferTick(tick("0xabc",
		model.TradeWire{Timestamp: 1, Price: "99", Amount: "1", Outlier: true},
		model.TradeWire{Timestamp: 2, Price: "garbage", Amount: "1"},
	))
	e.FlushAndApply()

	row, _ := coll.Get("0xabc")
	if row != baseRow() {
		t.Errorf("row modified by outlier-only tick: %+v", row)
	}
	if e.Stats().RowsApplied != 0 {
		t.Errorf("RowsApplied = %d, want 0", e.Stats().RowsApplied)
	}
}

func TestFlushDropsUnknownPair(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	e.BufferTick(tick("0xghost", model.TradeWire{Timestamp: 1, Price: "1", Amount: "1"}))
	e.FlushAndApply()

	if coll.Contains("0xghost") {
		t.Error("unknown pair inserted into collection")
	}
	if e.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", e.Stats().Dropped)
	}
}

func TestFlushAppliesStats(t *testing.T) {
	start := baseRow()
	start.Twitter = "https://x.com/old"
	start.MigrationPct = 10
	e, coll := testEngine(t, start)

	hp := true
	e.BufferStats(model.PairStatsEvent{
		Pair: model.PairStatsWire{
			PairAddress:    "0xabc",
			MintDisabled:   true,
			FreezeDisabled: false,
			IsHoneypot:     &hp,
			Verified:       true,
			TelegramLink:   "https://t.me/new",
			// TwitterLink absent: whole-field overwrite clears it.
		},
		MigrationProgress: "55",
	})
	e.FlushAndApply()

	row, _ := coll.Get("0xabc")
	if row.Mintable {
		t.Error("Mintable = true, want false (authority renounced)")
	}
	if !row.Freezable {
		t.Error("Freezable = false, want true")
	}
	if !row.Honeypot || !row.Verified {
		t.Errorf("Honeypot/Verified = %v/%v, want true/true", row.Honeypot, row.Verified)
	}
	if row.Twitter != "" {
		t.Errorf("Twitter = %q, want cleared", row.Twitter)
	}
	if row.Telegram != "https://t.me/new" {
		t.Errorf("Telegram = %q", row.Telegram)
	}
	if row.MigrationPct != 55 {
		t.Errorf("MigrationPct = %v, want 55", row.MigrationPct)
	}
}

func TestFlushStatsKeepMigrationOnBadPct(t *testing.T) {
	start := baseRow()
	start.MigrationPct = 42
	e, coll := testEngine(t, start)

	e.BufferStats(model.PairStatsEvent{
		Pair:              model.PairStatsWire{PairAddress: "0xabc"},
		MigrationProgress: "150", // Out of range
	})
	e.FlushAndApply()

	row, _ := coll.Get("0xabc")
	if row.MigrationPct != 42 {
		t.Errorf("MigrationPct = %v, want 42 (kept)", row.MigrationPct)
	}
}

func TestFlushLayersStatsOverTick(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	e.BufferTick(tick("0xabc", model.TradeWire{Timestamp: 1, Price: "0.003", Amount: "5", TokenIn: "0xtoken"}))
	e.BufferStats(model.PairStatsEvent{
		Pair: model.PairStatsWire{PairAddress: "0xabc", Verified: true},
	})
	e.FlushAndApply()

	// Both layers land in the same flush: the tick's price and the stats'
	// verified flag.
	row, _ := coll.Get("0xabc")
	if row.Price != 0.003 {
		t.Errorf("Price = %v, want 0.003", row.Price)
	}
	if !row.Verified {
		t.Error("Verified = false, want true")
	}
}

func TestApplyRefreshClearsBuffers(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	e.BufferTick(tick("0xabc", model.TradeWire{Timestamp: 1, Price: "9", Amount: "1", TokenIn: "0xtoken"}))

	fresh := baseRow()
	fresh.Price = 0.5
	e.ApplyRefresh([]model.Row{fresh})

	// The stale buffered tick must not survive the refresh.
	e.FlushAndApply()

	row, _ := coll.Get("0xabc")
	if row.Price != 0.5 {
		t.Errorf("Price = %v, want 0.5 (buffered tick discarded)", row.Price)
	}
}

func TestResetAllClearsBuffersAndNotifies(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	var changes int
	e.OnChange(func() { changes++ })

	e.BufferTick(tick("0xabc", model.TradeWire{Timestamp: 1, Price: "9", Amount: "1"}))

	other := baseRow()
	other.PairAddress = "0xnew"
	e.ResetAll([]model.Row{other})

	if changes != 1 {
		t.Errorf("onChange calls = %d, want 1", changes)
	}
	if coll.Contains("0xabc") || !coll.Contains("0xnew") {
		t.Error("ResetAll did not replace the collection")
	}

	// Buffered tick for the removed row is gone.
	e.FlushAndApply()
	if e.Stats().Dropped != 0 {
		t.Errorf("Dropped = %d, want 0 (buffers were cleared)", e.Stats().Dropped)
	}
}

func TestApplyPageKeepsBuffers(t *testing.T) {
	e, coll := testEngine(t, baseRow())

	e.BufferTick(tick("0xabc", model.TradeWire{Timestamp: 1, Price: "0.004", Amount: "1", TokenIn: "0xtoken"}))

	extra := baseRow()
	extra.PairAddress = "0xpage2"
	e.ApplyPage(2, []model.Row{extra})

	e.FlushAndApply()

	row, _ := coll.Get("0xabc")
	if row.Price != 0.004 {
		t.Errorf("Price = %v, want 0.004 (buffer survives page load)", row.Price)
	}
	if !coll.Contains("0xpage2") {
		t.Error("page 2 row missing")
	}
}

func TestOnChangeFiresOnlyWhenApplied(t *testing.T) {
	e, _ := testEngine(t, baseRow())

	var changes int
	e.OnChange(func() { changes++ })

	// Empty flush: no change.
	e.FlushAndApply()
	if changes != 0 {
		t.Errorf("onChange after empty flush = %d, want 0", changes)
	}

	// Unknown pair only: dropped, still no change.
	e.BufferTick(tick("0xghost", model.TradeWire{Timestamp: 1, Price: "1", Amount: "1"}))
	e.FlushAndApply()
	if changes != 0 {
		t.Errorf("onChange after dropped-only flush = %d, want 0", changes)
	}

	e.BufferTick(tick("0xabc", model.TradeWire{Timestamp: 1, Price: "1", Amount: "1", TokenIn: "0xtoken"}))
	e.FlushAndApply()
	if changes != 1 {
		t.Errorf("onChange after applied flush = %d, want 1", changes)
	}
}
