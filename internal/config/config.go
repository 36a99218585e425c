// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"presence-engine/internal/db"
	settingsdomain "presence-engine/internal/presencesettings/domain"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// StoreDriver selects the attendance store: postgres or sqlite.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the database file; required when StoreDriver is sqlite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// Postgres pool sizing; ignored for sqlite.
	DBMaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxIdleTime string `mapstructure:"DB_CONN_MAX_IDLE_TIME"`

	// JWTPublicKey is the PEM-encoded public key or path to file used to verify access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTPrivateKey is only read by dev tooling (presencectl token, seed) to issue tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the lifetime of tokens issued by dev tooling (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// Deployment defaults for companies without their own presence settings.
	DefaultGraceDuration    string  `mapstructure:"DEFAULT_GRACE_DURATION"`
	DefaultConfirmReadings  int     `mapstructure:"DEFAULT_CONFIRM_READINGS"`
	DefaultRecoverReadings  int     `mapstructure:"DEFAULT_RECOVER_READINGS"`
	DefaultEscalateReadings int     `mapstructure:"DEFAULT_ESCALATE_READINGS"`
	DefaultMaxAccuracyM     float64 `mapstructure:"DEFAULT_MAX_ACCURACY_M"`
	DefaultAccuracyMode     string  `mapstructure:"DEFAULT_ACCURACY_MODE"`
	// SettingsCacheTTL is how long per-company settings are cached; "0s" disables the cache.
	SettingsCacheTTL string `mapstructure:"SETTINGS_CACHE_TTL"`

	// SweepInterval is the period of the expired-countdown sweep; "0s" disables it.
	SweepInterval  string `mapstructure:"SWEEP_INTERVAL"`
	SweepBatchSize int    `mapstructure:"SWEEP_BATCH_SIZE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// PresenceEventsTopic carries presence events for the worker.
	PresenceEventsTopic string `mapstructure:"PRESENCE_EVENTS_TOPIC"`
	// NotificationsTopic carries auto-checkout notifications.
	NotificationsTopic string `mapstructure:"NOTIFICATIONS_TOPIC"`

	// Worker-only: Loki URL the event worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the collector address; empty disables export.
	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	d := settingsdomain.Defaults()
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("STORE_DRIVER", string(db.DialectPostgres))
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", db.DefaultPool.MaxOpenConns)
	v.SetDefault("DB_MAX_IDLE_CONNS", db.DefaultPool.MaxIdleConns)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", db.DefaultPool.ConnMaxIdleTime.String())
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_ISSUER", "presence-auth")
	v.SetDefault("JWT_AUDIENCE", "presence-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("DEFAULT_GRACE_DURATION", d.GraceDuration)
	v.SetDefault("DEFAULT_CONFIRM_READINGS", d.ConfirmReadings)
	v.SetDefault("DEFAULT_RECOVER_READINGS", d.RecoverReadings)
	v.SetDefault("DEFAULT_ESCALATE_READINGS", d.EscalateReadings)
	v.SetDefault("DEFAULT_MAX_ACCURACY_M", d.MaxAccuracyM)
	v.SetDefault("DEFAULT_ACCURACY_MODE", d.AccuracyMode)
	v.SetDefault("SETTINGS_CACHE_TTL", "30s")
	v.SetDefault("SWEEP_INTERVAL", "15s")
	v.SetDefault("SWEEP_BATCH_SIZE", 100)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("PRESENCE_EVENTS_TOPIC", "presence-events")
	v.SetDefault("NOTIFICATIONS_TOPIC", "presence-notifications")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "presence-event-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "presence-engine")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	driver, err := db.ParseDialect(cfg.StoreDriver)
	if err != nil {
		return nil, fmt.Errorf("config: STORE_DRIVER: %w", err)
	}
	if driver == db.DialectSQLite && strings.TrimSpace(cfg.SQLitePath) == "" {
		return nil, errors.New("config: SQLITE_PATH must be set when STORE_DRIVER=sqlite")
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 || cfg.DBMaxIdleConns > cfg.DBMaxOpenConns {
		return nil, fmt.Errorf("config: DB_MAX_OPEN_CONNS must be positive and DB_MAX_IDLE_CONNS within [0, %d]", cfg.DBMaxOpenConns)
	}
	if _, err := parseDuration("DB_CONN_MAX_IDLE_TIME", cfg.DBConnMaxIdleTime); err != nil {
		return nil, err
	}
	if _, err := parseDuration("SETTINGS_CACHE_TTL", cfg.SettingsCacheTTL); err != nil {
		return nil, err
	}
	if _, err := parseDuration("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.SweepBatchSize <= 0 {
		return nil, errors.New("config: SWEEP_BATCH_SIZE must be positive")
	}
	defaults := cfg.SettingsDefaults()
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("config: presence defaults: %w", err)
	}

	return &cfg, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative duration, got %q", key, s)
	}
	return d, nil
}

// Dialect returns the parsed STORE_DRIVER. Load has already validated it.
func (c *Config) Dialect() db.Dialect {
	d, _ := db.ParseDialect(c.StoreDriver)
	return d
}

// DBPool returns the Postgres pool sizes. Unset fields fall back to db.DefaultPool.
func (c *Config) DBPool() db.Pool {
	idle, _ := parseDuration("DB_CONN_MAX_IDLE_TIME", c.DBConnMaxIdleTime)
	return db.Pool{MaxOpenConns: c.DBMaxOpenConns, MaxIdleConns: c.DBMaxIdleConns, ConnMaxIdleTime: idle}
}

// SettingsDefaults returns the deployment defaults applied to companies without settings.
func (c *Config) SettingsDefaults() settingsdomain.Settings {
	return settingsdomain.Settings{
		GraceDuration:    c.DefaultGraceDuration,
		ConfirmReadings:  c.DefaultConfirmReadings,
		RecoverReadings:  c.DefaultRecoverReadings,
		EscalateReadings: c.DefaultEscalateReadings,
		MaxAccuracyM:     c.DefaultMaxAccuracyM,
		AccuracyMode:     c.DefaultAccuracyMode,
	}
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SettingsTTL returns the settings cache TTL; zero disables caching.
func (c *Config) SettingsTTL() time.Duration {
	d, _ := parseDuration("SETTINGS_CACHE_TTL", c.SettingsCacheTTL)
	return d
}

// SweepEvery returns the sweep period; zero disables the periodic sweep.
func (c *Config) SweepEvery() time.Duration {
	d, _ := parseDuration("SWEEP_INTERVAL", c.SweepInterval)
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the event producer and the notification dispatcher.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
