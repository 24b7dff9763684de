package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// msToDuration converts a millisecond count into a duration.
func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if !strings.HasPrefix(c.API.RestURL, "http://") && !strings.HasPrefix(c.API.RestURL, "https://") {
		return fmt.Errorf("api.rest_url must be http(s), got %q", c.API.RestURL)
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	if c.Stream.WSURL == "" {
		return errors.New("stream.ws_url is required")
	}
	if !strings.HasPrefix(c.Stream.WSURL, "ws://") && !strings.HasPrefix(c.Stream.WSURL, "wss://") {
		return fmt.Errorf("stream.ws_url must be ws(s), got %q", c.Stream.WSURL)
	}
	if c.Stream.ReconnectDelay < time.Second {
		return errors.New("stream.reconnect_delay must be >= 1s")
	}
	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}

	if c.Merge.FlushInterval < 10*time.Millisecond {
		return errors.New("merge.flush_interval must be >= 10ms")
	}

	if c.Scanner.Order != "asc" && c.Scanner.Order != "desc" {
		return fmt.Errorf("scanner.order must be asc or desc, got %q", c.Scanner.Order)
	}

	return nil
}
