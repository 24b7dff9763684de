package merge

import (
	"strconv"

	"github.com/rickgao/dexscan-data/internal/model"
)

// applyTick recomputes a row from a batch of swaps. Outlier-flagged and
// unparseable trades are discarded; if nothing remains the tick is a no-op
// and the row is left unmodified.
//
// Volume accumulates per trade as price × amount of that trade. The
// upstream reference multiplied the batch amount by the last price instead;
// that was an approximation, not a VWAP, and is deliberately not preserved.
func applyTick(row model.Row, ev model.TickEvent) (model.Row, bool) {
	var (
		last     model.Trade
		haveLast bool
		volume   float64
		buys     int64
		sells    int64
	)

	for _, w := range ev.Swaps {
		if w.Outlier {
			continue
		}
		trade, ok := w.ToTrade()
		if !ok {
			continue
		}

		// Chronologically last remaining trade sets the new price.
		if !haveLast || trade.Timestamp >= last.Timestamp {
			last = trade
			haveLast = true
		}

		volume += trade.Price * trade.Amount
		if trade.IsBuy(row.TokenAddress) {
			buys++
		} else {
			sells++
		}
	}

	if !haveLast {
		return row, false
	}

	row.Price = last.Price
	row.MarketCap = last.Price * row.TotalSupply
	row.Volume24h += volume
	row.Buys += buys
	row.Sells += sells
	return row, true
}

// applyStats overwrites the audit, migration, social, and paid fields
// directly from the payload. This is whole-field replacement: socials are
// each independently settable to empty. Migration progress keeps its old
// value when the payload's is unparseable.
func applyStats(row model.Row, ev model.PairStatsEvent) model.Row {
	p := ev.Pair

	row.Mintable = !p.MintDisabled
	row.Freezable = !p.FreezeDisabled
	row.Honeypot = p.Honeypot()
	row.Verified = p.Verified

	row.Discord = p.DiscordLink
	row.Telegram = p.TelegramLink
	row.Twitter = p.TwitterLink
	row.Website = p.WebLink
	row.Paid = p.Paid

	if pct, ok := parsePct(ev.MigrationProgress); ok {
		row.MigrationPct = pct
	}
	return row
}

func parsePct(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}
