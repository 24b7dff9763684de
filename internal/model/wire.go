package model

import (
	"strconv"
	"time"
)

// -----------------------------------------------------------------------------
// REST / scanner-pairs payloads
// -----------------------------------------------------------------------------

// ScannerResponseWire is the body of GET /scanner and the payload of
// scanner-pairs push frames (under data.results).
type ScannerResponseWire struct {
	Pairs     []PairWire `json:"pairs"`
	TotalRows int        `json:"totalRows,omitempty"`
}

// PairWire is one row as the upstream feed encodes it. Numerics arrive as
// strings; percentage changes may be absent entirely.
type PairWire struct {
	PairAddress  string `json:"pairAddress"`
	TokenAddress string `json:"tokenAddress"`
	Chain        string `json:"chain"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`

	Price       string `json:"price"`
	MarketCap   string `json:"mcap"`
	Volume24h   string `json:"volume24H"`
	Liquidity   string `json:"liquidity"`
	Buys        int64  `json:"buys"`
	Sells       int64  `json:"sells"`
	TotalSupply string `json:"totalSupply"`

	Change5m  string `json:"diff5M,omitempty"`
	Change1h  string `json:"diff1H,omitempty"`
	Change6h  string `json:"diff6H,omitempty"`
	Change24h string `json:"diff24H,omitempty"`

	Mintable  bool `json:"mintable"`
	Freezable bool `json:"freezable"`
	Honeypot  bool `json:"honeypot"`
	Verified  bool `json:"contractVerified"`

	CreatedAt         string `json:"createdAt"` // RFC3339
	MigrationProgress string `json:"migrationProgress,omitempty"`

	DiscordLink  string `json:"discordLink,omitempty"`
	TelegramLink string `json:"telegramLink,omitempty"`
	TwitterLink  string `json:"twitterLink,omitempty"`
	WebLink      string `json:"webLink,omitempty"`

	Paid bool `json:"dexPaid"`
}

// ToRow converts a wire pair into a domain Row. Returns false if the row
// lacks an identity or a parseable price; such rows are dropped upstream
// of the collection.
func (w PairWire) ToRow() (Row, bool) {
	if w.PairAddress == "" {
		return Row{}, false
	}
	price, ok := parseNum(w.Price)
	if !ok || price < 0 {
		return Row{}, false
	}

	r := Row{
		PairAddress:  w.PairAddress,
		TokenAddress: w.TokenAddress,
		Chain:        w.Chain,
		Symbol:       w.Symbol,
		Name:         w.Name,
		Price:        price,
		MarketCap:    parseNumOrZero(w.MarketCap),
		Volume24h:    parseNumOrZero(w.Volume24h),
		Liquidity:    parseNumOrZero(w.Liquidity),
		Buys:         w.Buys,
		Sells:        w.Sells,
		TotalSupply:  parseNumOrZero(w.TotalSupply),
		Change5m:     parseChange(w.Change5m),
		Change1h:     parseChange(w.Change1h),
		Change6h:     parseChange(w.Change6h),
		Change24h:    parseChange(w.Change24h),
		Mintable:     w.Mintable,
		Freezable:    w.Freezable,
		Honeypot:     w.Honeypot,
		Verified:     w.Verified,
		MigrationPct: parseNumOrZero(w.MigrationProgress),
		Discord:      w.DiscordLink,
		Telegram:     w.TelegramLink,
		Twitter:      w.TwitterLink,
		Website:      w.WebLink,
		Paid:         w.Paid,
	}
	if ts, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
		r.CreatedAt = ts.UnixMicro()
	}
	return r, true
}

// ToRows converts a wire page, dropping unparseable rows.
func (w ScannerResponseWire) ToRows() []Row {
	rows := make([]Row, 0, len(w.Pairs))
	for _, p := range w.Pairs {
		if r, ok := p.ToRow(); ok {
			rows = append(rows, r)
		}
	}
	return rows
}

// -----------------------------------------------------------------------------
// Streaming event payloads
// -----------------------------------------------------------------------------

// ScannerPairsEvent is the payload of a scanner-pairs push frame: a full
// refresh of the ranked first page.
type ScannerPairsEvent struct {
	Results ScannerResponseWire `json:"results"`
}

// TickEvent is the payload of a tick push frame: a batch of swaps for one pair.
type TickEvent struct {
	Pair  PairKey     `json:"pair"`
	Swaps []TradeWire `json:"swaps"`
}

// TradeWire is one swap as encoded on the wire.
type TradeWire struct {
	Timestamp int64  `json:"timestamp"` // µs since epoch
	Price     string `json:"priceUsd"`
	Amount    string `json:"amount"`
	TokenIn   string `json:"tokenInAddress"`
	Outlier   bool   `json:"isOutlier"`
}

// ToTrade parses the wire swap. Returns false if price or amount is
// unparseable; such trades are skipped, never partially applied.
func (w TradeWire) ToTrade() (Trade, bool) {
	price, ok := parseNum(w.Price)
	if !ok || price < 0 {
		return Trade{}, false
	}
	amount, ok := parseNum(w.Amount)
	if !ok || amount < 0 {
		return Trade{}, false
	}
	return Trade{
		Timestamp: w.Timestamp,
		Price:     price,
		Amount:    amount,
		TokenIn:   w.TokenIn,
		Outlier:   w.Outlier,
	}, true
}

// PairStatsEvent is the payload of a pair-stats push frame: audit,
// migration, and social metadata for one pair.
type PairStatsEvent struct {
	Pair              PairStatsWire `json:"pair"`
	MigrationProgress string        `json:"migrationProgress"`
}

// PairStatsWire carries the audit/social fields of a pair-stats frame.
//
// Honeypot polarity: the stream historically sent both isHoneypot and the
// inverted notHoneypot depending on feed version. Honeypot() normalizes to
// the canonical polarity (true = flagged honeypot) in one place.
type PairStatsWire struct {
	PairAddress    string `json:"pairAddress"`
	MintDisabled   bool   `json:"mintAuthorityRenounced"`
	FreezeDisabled bool   `json:"freezeAuthorityRenounced"`
	IsHoneypot     *bool  `json:"isHoneypot,omitempty"`
	NotHoneypot    *bool  `json:"notHoneypot,omitempty"`
	Verified       bool   `json:"isVerified"`

	DiscordLink  string `json:"discordLink"`
	TelegramLink string `json:"telegramLink"`
	TwitterLink  string `json:"twitterLink"`
	WebLink      string `json:"webLink"`

	Paid bool `json:"dexPaid"`
}

// Honeypot returns the canonical honeypot flag. isHoneypot wins when both
// variants are present.
func (w PairStatsWire) Honeypot() bool {
	if w.IsHoneypot != nil {
		return *w.IsHoneypot
	}
	if w.NotHoneypot != nil {
		return !*w.NotHoneypot
	}
	return false
}

// PricesEvent is the payload of a wpeg-prices frame: reference prices for
// wrapped native tokens, keyed by chain. Consumed but never merged into rows.
type PricesEvent struct {
	Prices map[string]float64 `json:"prices"`
}

// -----------------------------------------------------------------------------
// Numeric parsing
// -----------------------------------------------------------------------------

func parseNum(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseNumOrZero(s string) float64 {
	v, ok := parseNum(s)
	if !ok || v < 0 {
		return 0
	}
	return v
}

// parseChange parses a signed percentage change; absent or malformed
// values become the unknown marker rather than zero.
func parseChange(s string) float64 {
	v, ok := parseNum(s)
	if !ok {
		return Unknown()
	}
	return v
}
