package config

import "time"

// Config is the root configuration for a dashboard data-core instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Stream   StreamConfig   `yaml:"stream"`
	Merge    MergeConfig    `yaml:"merge"`
	Scanner  ScannerConfig  `yaml:"scanner"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds scanner REST API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StreamConfig holds streaming transport settings.
type StreamConfig struct {
	WSURL          string        `yaml:"ws_url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`  // Countdown before reconnect after unclean close
	DialRetryDelay time.Duration `yaml:"dial_retry_delay"` // Backoff when connection construction fails
	SettleDelay    time.Duration `yaml:"settle_delay"`     // Wait after open before restoring subscriptions
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	BufferSize     int           `yaml:"buffer_size"`
}

// MergeConfig holds merge engine settings.
type MergeConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ScannerConfig holds the default ranked view.
type ScannerConfig struct {
	Chain            string  `yaml:"chain"`
	RankBy           string  `yaml:"rank_by"`
	Order            string  `yaml:"order"`
	MinVolume24h     float64 `yaml:"min_vol_24h"`
	MaxAgeHours      int     `yaml:"max_age_hours"`
	MinMarketCap     float64 `yaml:"min_mcap"`
	ExcludeHoneypots bool    `yaml:"exclude_honeypots"`
}
