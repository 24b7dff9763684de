// Package scanner holds the authoritative in-memory dataset: the Row
// Collection (ranked pages plus an identity index) and the Snapshot
// Fetcher that grows it one REST page at a time.
package scanner
