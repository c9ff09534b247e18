package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP server
	Server ServerConfig `mapstructure:"server"`

	// Authentication
	Auth AuthConfig `mapstructure:"auth"`

	// short.io provider
	ShortIO ShortIOConfig `mapstructure:"shortio"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// CORS
	CORS CORSConfig `mapstructure:"cors"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type ShortIOConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Domain       string        `mapstructure:"domain"`
	BaseURL      string        `mapstructure:"base_url"`
	StatsBaseURL string        `mapstructure:"stats_base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

type CORSConfig struct {
	// AllowedOrigins is the exact-match allow list.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// PreviewSuffix additionally admits preview-deployment origins,
	// e.g. "-preview.shorty.app" matches "https://pr-42-preview.shorty.app".
	PreviewSuffix string `mapstructure:"preview_suffix"`
}

const (
	defaultPort         = 5001
	defaultTokenTTL     = time.Hour
	defaultShortIOWait  = 10 * time.Second
	defaultAPIBaseURL   = "https://api.short.io"
	defaultStatsBaseURL = "https://api-v2.short.io"
)

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", defaultPort)
	v.SetDefault("auth.token_ttl", defaultTokenTTL)
	v.SetDefault("shortio.timeout", defaultShortIOWait)
	v.SetDefault("shortio.base_url", defaultAPIBaseURL)
	v.SetDefault("shortio.stats_base_url", defaultStatsBaseURL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if origins := v.GetString("cors.allowed_origins"); origins != "" {
		cfg.CORS.AllowedOrigins = splitOrigins(origins)
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ShortIO.APIKey == "" {
		return fmt.Errorf("SHORTIO_API_KEY is required")
	}
	if c.ShortIO.Domain == "" {
		return fmt.Errorf("SHORTIO_DOMAIN is required")
	}
	return nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_ttl", "JWT_TOKEN_TTL")

	// short.io
	v.BindEnv("shortio.api_key", "SHORTIO_API_KEY")
	v.BindEnv("shortio.domain", "SHORTIO_DOMAIN")
	v.BindEnv("shortio.base_url", "SHORTIO_BASE_URL")
	v.BindEnv("shortio.stats_base_url", "SHORTIO_STATS_BASE_URL")
	v.BindEnv("shortio.timeout", "SHORTIO_TIMEOUT")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")

	// CORS
	v.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("cors.preview_suffix", "CORS_PREVIEW_SUFFIX")
}
