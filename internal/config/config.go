package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Broker    BrokerConfig    `mapstructure:"broker" validate:"required"`
	Worker    WorkerConfig    `mapstructure:"worker" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains settings shared by every process.
type ServerConfig struct {
	LogLevel         string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	EventHistorySize int    `mapstructure:"event_history_size" validate:"gte=0"`
}

// RedisConfig contains connection settings for the broker and cache store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	PoolSize int    `mapstructure:"pool_size" validate:"gte=0"`
}

// DatabaseConfig contains settings for the data store workers acquire
// scoped handles from. It is optional; compute functions that need no
// store run against a nil pool.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// BrokerConfig contains task queue settings.
type BrokerConfig struct {
	// MaxQueueDepth is the backpressure cap per queue; Enqueue beyond it
	// returns ErrQueueFull instead of growing the queue unbounded.
	MaxQueueDepth int64 `mapstructure:"max_queue_depth" validate:"required,gt=0"`

	// VisibilityTimeout is how long a dequeued task stays invisible before
	// it is reclaimed for other workers (late-acknowledgment window).
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" validate:"required,gt=0"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	Count        int           `mapstructure:"count" validate:"required,gt=0"`
	Queues       []string      `mapstructure:"queues" validate:"required,min=1"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required,gt=0"`

	// RetryBaseDelay is the initial interval of the exponential backoff
	// applied when a transient failure is re-enqueued.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"required,gt=0"`

	// HistorySize bounds the in-memory job history ring.
	HistorySize int `mapstructure:"history_size" validate:"gte=0"`
}

// CacheConfig contains cache store settings.
type CacheConfig struct {
	// DefaultTTL applies to keys whose prefix has no entry in the
	// per-partition TTL table.
	DefaultTTL time.Duration `mapstructure:"default_ttl" validate:"gte=0"`
}

// SchedulerConfig contains beat process settings.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
