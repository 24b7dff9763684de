package stream

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// Outbound event tags.
const (
	EventScannerFilter      = "scanner-filter"
	EventUnsubScannerFilter = "unsubscribe-scanner-filter"
	EventSubscribePair      = "subscribe-pair"
	EventUnsubscribePair    = "unsubscribe-pair"
	EventSubscribeStats     = "subscribe-pair-stats"
	EventUnsubscribeStats   = "unsubscribe-pair-stats"
)

// Inbound event tags.
const (
	EventScannerPairs = "scanner-pairs"
	EventTick         = "tick"
	EventPairStats    = "pair-stats"
	EventPrices       = "wpeg-prices"
)

// Frame is the envelope of every message on the socket, both directions.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inboundFrame defers payload decoding until the tag is known.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// State is the transport connection state.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Status is a snapshot of the transport for the UI layer.
type Status struct {
	State        State
	Establishing bool // A dial is currently in flight
	Countdown    int  // Seconds until the next reconnect attempt, 0 = none
	CleanClose   bool // Last close was manual (no reconnect pending)
}

// Stats counts frame-level activity since the transport was created.
type Stats struct {
	FramesReceived   int64
	FramesDispatched int64
	ParseErrors      int64
	UnknownEvents    int64
	Reconnects       int64
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}
