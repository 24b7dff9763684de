package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL        = "https://api-rs.dexcelerate.com"
	DefaultWSURL          = "wss://api-rs.dexcelerate.com/ws"
	DefaultAPITimeout     = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultReconnectDelay = 3 * time.Second
	DefaultDialRetryDelay = 3 * time.Second
	DefaultSettleDelay    = 500 * time.Millisecond
	DefaultWriteTimeout   = 5 * time.Second
	DefaultBufferSize     = 1000
	DefaultFlushInterval  = 1 * time.Second
	DefaultRankBy         = "trending"
	DefaultOrder          = "desc"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Stream defaults
	if c.Stream.WSURL == "" {
		c.Stream.WSURL = DefaultWSURL
	}
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Stream.DialRetryDelay == 0 {
		c.Stream.DialRetryDelay = DefaultDialRetryDelay
	}
	if c.Stream.SettleDelay == 0 {
		c.Stream.SettleDelay = DefaultSettleDelay
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultBufferSize
	}

	// Merge defaults
	if c.Merge.FlushInterval == 0 {
		c.Merge.FlushInterval = DefaultFlushInterval
	}

	// Scanner defaults
	if c.Scanner.RankBy == "" {
		c.Scanner.RankBy = DefaultRankBy
	}
	if c.Scanner.Order == "" {
		c.Scanner.Order = DefaultOrder
	}
}
