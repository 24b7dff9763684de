package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rickgao/dexscan-data/internal/model"
)

// ScannerPage is one ranked page of rows, already converted from the wire.
type ScannerPage struct {
	Rows      []model.Row // Up to the fixed page size, in rank order
	TotalRows int         // Advisory total from upstream, 0 if omitted
}

// GetScannerPage fetches one page of the ranked, filtered scanner view.
// Pages are numbered from 1; upstream treats an absent page as page 1.
func (c *Client) GetScannerPage(ctx context.Context, params model.ScannerParams, page int) (*ScannerPage, error) {
	query := params.Query()
	if page > 1 {
		query.Set("page", strconv.Itoa(page))
	}

	var wire model.ScannerResponseWire
	if err := c.get(ctx, "/scanner", query, &wire); err != nil {
		return nil, fmt.Errorf("get scanner page %d: %w", page, err)
	}

	return &ScannerPage{
		Rows:      wire.ToRows(),
		TotalRows: wire.TotalRows,
	}, nil
}
