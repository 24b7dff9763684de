package model

import (
	"net/url"
	"strconv"
)

// Sort directions for the ranked scanner query.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Rank fields accepted by the scanner endpoint.
const (
	RankByVolume    = "volume"
	RankByAge       = "age"
	RankByMarketCap = "mcap"
	RankByLiquidity = "liquidity"
	RankByTrending  = "trending"
)

// ScannerParams are the ranking/filter parameters for the scanner query.
// They select and order the row universe; any change invalidates all
// previously fetched pages.
type ScannerParams struct {
	RankBy           string  `json:"rankBy"`                     // Rank field (volume, age, mcap, ...)
	Order            string  `json:"order"`                      // "asc" or "desc"
	Chain            string  `json:"chain,omitempty"`            // Chain filter, empty = all
	MinVolume24h     float64 `json:"minVol24H,omitempty"`        // Minimum 24h volume (USD)
	MaxAgeHours      int     `json:"maxAge,omitempty"`           // Maximum pair age (hours), 0 = no limit
	MinMarketCap     float64 `json:"minMcap,omitempty"`          // Minimum market cap (USD)
	ExcludeHoneypots bool    `json:"isNotHP,omitempty"`          // Exclude flagged honeypots
}

// DefaultScannerParams returns the default ranked view: trending, descending.
func DefaultScannerParams() ScannerParams {
	return ScannerParams{
		RankBy: RankByTrending,
		Order:  OrderDesc,
	}
}

// Query encodes the parameters for the REST scanner endpoint. The page
// number is appended by the caller.
func (p ScannerParams) Query() url.Values {
	q := url.Values{}
	q.Set("rankBy", p.RankBy)
	q.Set("order", p.Order)
	if p.Chain != "" {
		q.Set("chain", p.Chain)
	}
	if p.MinVolume24h > 0 {
		q.Set("minVol24H", strconv.FormatFloat(p.MinVolume24h, 'f', -1, 64))
	}
	if p.MaxAgeHours > 0 {
		q.Set("maxAge", strconv.Itoa(p.MaxAgeHours))
	}
	if p.MinMarketCap > 0 {
		q.Set("minMcap", strconv.FormatFloat(p.MinMarketCap, 'f', -1, 64))
	}
	if p.ExcludeHoneypots {
		q.Set("isNotHP", "true")
	}
	return q
}

// Equal reports whether two parameter sets select the same row universe.
func (p ScannerParams) Equal(o ScannerParams) bool {
	return p == o
}
