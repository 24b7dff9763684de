// Package merge implements the Update Buffer and Merge Engine.
//
// Incoming tick and stats events are buffered per pair address with
// last-write-wins coalescing. On each flush interval the engine folds the
// buffered events into the Row Collection, recomputing price, market cap,
// volume, and the buy/sell counters, and replaces the collection contents
// with structurally new pages. Full scanner snapshots also funnel through
// this package: all collection mutation happens here.
package merge
