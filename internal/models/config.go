package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Settings   SettingsConfig
	Cache      CacheConfig
	Dispatcher DispatcherConfig
	Broker     BrokerConfig
	Formance   FormanceConfig
	Metrics    MetricsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver           string // sqlite3 or pgx
	Path             string
	Url              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	LockTimeout      time.Duration
	CreateDummyUsers bool
}

// SettingsConfig controls settings seeding and limit windows
type SettingsConfig struct {
	SeedFile string
	Timezone string
}

// CacheConfig holds the optional Redis settings cache
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDb       int
	Ttl           time.Duration
}

func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// DispatcherConfig holds outbox relay settings
type DispatcherConfig struct {
	PollingInterval time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	BatchSize       int
	MaxAttempts     int
}

// BrokerConfig holds the RabbitMQ connection for settlement hand-off
type BrokerConfig struct {
	Url      string
	Exchange string
}

// FormanceConfig holds the optional Formance ledger mirror
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

func (c FormanceConfig) Enabled() bool {
	return c.StackURL != ""
}

// MetricsConfig holds the Prometheus listener address
type MetricsConfig struct {
	Addr string
}
