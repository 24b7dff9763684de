package model

import "math"

// Row represents one trading pair (token listing), the unit of display
// and subscription. Identity is the pair address, unique within a chain.
type Row struct {
	PairAddress  string // Primary key (e.g., "0xabc...")
	TokenAddress string // Base token contract address
	Chain        string // Chain identifier (e.g., "ETH", "SOL", "BASE")

	Symbol string // Display symbol (e.g., "PEPE")
	Name   string // Display name

	// Market numerics. Never negative after a valid merge.
	Price     float64 // Last execution price (USD)
	MarketCap float64 // Price × TotalSupply
	Volume24h float64 // Cumulative 24h volume (USD)
	Liquidity float64 // Pool liquidity (USD)
	Buys      int64   // Running buy count
	Sells     int64   // Running sell count

	// Percentage changes at fixed horizons. NaN = unknown (upstream omitted).
	Change5m  float64
	Change1h  float64
	Change6h  float64
	Change24h float64

	// Audit flags.
	Mintable  bool // Mint authority still enabled
	Freezable bool // Freeze authority still enabled
	Honeypot  bool // Flagged as honeypot (canonical polarity: true = honeypot)
	Verified  bool // Contract source verified

	CreatedAt    int64   // Pair creation time (µs since epoch)
	MigrationPct float64 // Bonding-curve migration progress (0-100)
	TotalSupply  float64 // Fixed total supply, used for market cap

	// Social links. Empty string = not set.
	Discord  string
	Telegram string
	Twitter  string
	Website  string

	Paid bool // Paid/boosted listing
}

// Key returns the subscription key for this row.
func (r Row) Key() PairKey {
	return PairKey{Pair: r.PairAddress, Token: r.TokenAddress, Chain: r.Chain}
}

// PairKey identifies a pair on the streaming feed. It is the data payload
// of subscribe-pair and subscribe-pair-stats frames.
type PairKey struct {
	Pair  string `json:"pair"`
	Token string `json:"token"`
	Chain string `json:"chain"`
}

// Trade is a single swap within a tick batch, already parsed.
type Trade struct {
	Timestamp int64   // Execution time (µs since epoch)
	Price     float64 // Execution price (USD)
	Amount    float64 // Trade amount in base token units
	TokenIn   string  // Input asset address (buy if equal to the row's token)
	Outlier   bool    // Flagged anomalous by upstream; excluded from recompute
}

// IsBuy reports whether the trade is a buy for the given base token.
func (t Trade) IsBuy(tokenAddress string) bool {
	return t.TokenIn == tokenAddress
}

// Unknown is the marker for numeric fields the upstream feed omitted.
func Unknown() float64 { return math.NaN() }

// IsUnknown reports whether v is the omitted-value marker.
func IsUnknown(v float64) bool { return math.IsNaN(v) }
