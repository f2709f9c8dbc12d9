package config

import "time"

type Config struct {
	Service  *ServiceConfig
	Postgres *PostgresConfig
	Redis    *RedisConfig
	Auth     *AuthConfig
	Drafter  *DrafterConfig
	Worker   *WorkerConfig
	Stream   *StreamConfig
	Logger   *LoggerConfig
	Tracer   *TracerConfig
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type DrafterConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type WorkerConfig struct {
	AuditGroup  string
	AuditStream string
}

type StreamConfig struct {
	// Heartbeat is the SSE keep-alive comment interval.
	Heartbeat time.Duration
	// PresenceTTL bounds how long a silent dispatcher counts as online.
	PresenceTTL time.Duration
	// Buffer is the per-connection outbound queue depth; full queues drop.
	Buffer int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
	Enabled bool
}
