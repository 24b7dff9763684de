// Package stream implements the Streaming Transport component.
//
// The transport:
//   - Owns exactly one WebSocket connection to the scanner feed
//   - Encodes/decodes framed JSON messages ({event, data})
//   - Dispatches inbound frames by event tag to registered handlers
//   - Reconnects after unclean closes with a per-second countdown
//   - Restores subscriptions after a settle delay on every reconnection
//
// A manual disconnect closes with code 1000 and suppresses reconnection.
package stream
