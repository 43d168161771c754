package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Session   SessionSettings   `mapstructure:"session"`
	CSRF      CSRFSettings      `mapstructure:"csrf"`
	Audit     AuditSettings     `mapstructure:"audit"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Identity  IdentitySettings  `mapstructure:"identity"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// IsProduction gates the Secure cookie attribute among other things.
func (s AppSettings) IsProduction() bool {
	return strings.EqualFold(s.Env, "production")
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection used by the networked
// session store and the login rate limiter.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	SessionPrefix string `mapstructure:"session_prefix"`
	// Store selects the session store backend: "memory" for single-node
	// deployments, "redis" for multi-node.
	Store string `mapstructure:"store"`
}

// KafkaSettings configures the security event stream producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SessionSettings carries session policy knobs. Intervals are expressed in
// seconds and converted once by Policy().
type SessionSettings struct {
	MaxAgeSeconds         int           `mapstructure:"max_age_seconds"`
	IdleTimeoutSeconds    int           `mapstructure:"idle_timeout_seconds"`
	MaxConcurrentSessions int           `mapstructure:"max_concurrent_sessions"`
	BindFingerprint       bool          `mapstructure:"bind_fingerprint"`
	CleanupInterval       time.Duration `mapstructure:"cleanup_interval"`
}

// Policy converts the configured seconds into the policy the session
// lifecycle manager enforces.
func (s SessionSettings) Policy() domain.SessionPolicy {
	return domain.SessionPolicy{
		MaxAge:                time.Duration(s.MaxAgeSeconds) * time.Second,
		IdleTimeout:           time.Duration(s.IdleTimeoutSeconds) * time.Second,
		MaxConcurrentSessions: s.MaxConcurrentSessions,
		BindFingerprint:       s.BindFingerprint,
	}
}

type CSRFSettings struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type AuditSettings struct {
	RetentionDays   int           `mapstructure:"retention_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	WebhookURL      string        `mapstructure:"webhook_url"`
	AlertTimeout    time.Duration `mapstructure:"alert_timeout"`
}

// RateLimitSettings configures the sliding-window limit on login attempts.
type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
}

type IdentitySettings struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SALESFLOW")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.session_prefix",
		"redis.store",
		"kafka.brokers",
		"kafka.topic_prefix",
		"session.max_age_seconds",
		"session.idle_timeout_seconds",
		"session.max_concurrent_sessions",
		"session.bind_fingerprint",
		"session.cleanup_interval",
		"csrf.token_ttl",
		"audit.retention_days",
		"audit.cleanup_interval",
		"audit.webhook_url",
		"audit.alert_timeout",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"identity.jwt_secret",
		"identity.issuer",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sales-flow-security")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "salesflow")
	v.SetDefault("postgres.password", "salesflow_password")
	v.SetDefault("postgres.database", "salesflow")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.session_prefix", "salesflow:session")
	v.SetDefault("redis.store", "memory")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "salesflow.security")

	// 24h max age, 30min idle, five concurrent devices per user.
	v.SetDefault("session.max_age_seconds", 86400)
	v.SetDefault("session.idle_timeout_seconds", 1800)
	v.SetDefault("session.max_concurrent_sessions", 5)
	v.SetDefault("session.bind_fingerprint", true)
	v.SetDefault("session.cleanup_interval", "5m")

	v.SetDefault("csrf.token_ttl", "24h")

	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.cleanup_interval", "24h")
	v.SetDefault("audit.webhook_url", "")
	v.SetDefault("audit.alert_timeout", "5s")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)

	v.SetDefault("identity.jwt_secret", "")
	v.SetDefault("identity.issuer", "sales-flow")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "SALESFLOW_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
