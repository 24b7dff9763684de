// Package model defines shared data types used across the data core.
//
// Domain types (Row, Trade) are fully parsed: numeric fields are float64,
// with NaN marking values the upstream feed omitted. Wire types mirror the
// scanner REST/WebSocket payloads, which carry most numerics as strings;
// conversion between the two happens only in this package.
package model
