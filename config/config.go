package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // CLINIC_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"mediconnect/utils"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	DBURL string `mapstructure:"db_url"`

	RedisURL          string        `mapstructure:"redis_url"`
	RedisPoolSize     int           `mapstructure:"redis_pool_size"`
	RedisMinIdleConns int           `mapstructure:"redis_min_idle_conns"`
	RedisDialTimeout  time.Duration `mapstructure:"redis_dial_timeout"`
	RedisReadTimeout  time.Duration `mapstructure:"redis_read_timeout"`
	RedisMaxRetries   int           `mapstructure:"redis_max_retries"`

	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTExpiration     time.Duration `mapstructure:"jwt_expiration"`
	RefreshTokenKey   string        `mapstructure:"refresh_token_key"`
	RefreshExpiration time.Duration `mapstructure:"refresh_token_expiration"`

	// Timezone decides which calendar day an appointment falls on.
	Timezone string `mapstructure:"clinic_timezone"`

	CORSOrigins        []string `mapstructure:"cors_allowed_origins"`
	RateLimitRPS       float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`
	AuthRateLimitRPS   float64  `mapstructure:"auth_rate_limit_rps"`
	AuthRateLimitBurst int      `mapstructure:"auth_rate_limit_burst"`

	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	SMTPUser string `mapstructure:"smtp_user"`
	SMTPPass string `mapstructure:"smtp_pass"`
	SMTPFrom string `mapstructure:"smtp_from"`

	SentryDSN   string `mapstructure:"sentry_dsn"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// Location resolves Timezone; Load has already checked that it parses.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env (if present), an optional config.yaml and the environment.
// Environment variables win over the file.
func Load() (*AppConfig, error) {
	_ = godotenv.Load() // a missing .env is normal outside local dev
	return load(viper.New())
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("db_url", "")

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 5)
	v.SetDefault("redis_dial_timeout", 30*time.Second)
	v.SetDefault("redis_read_timeout", 10*time.Second)
	v.SetDefault("redis_max_retries", 3)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expiration", utils.DefaultAccessTokenExpiry)
	v.SetDefault("refresh_token_key", "")
	v.SetDefault("refresh_token_expiration", utils.DefaultRefreshTokenExpiry)

	v.SetDefault("clinic_timezone", "UTC")

	v.SetDefault("cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit_rps", 15)
	v.SetDefault("rate_limit_burst", 30)
	v.SetDefault("auth_rate_limit_rps", 1)
	v.SetDefault("auth_rate_limit_burst", 5)

	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_pass", "")
	v.SetDefault("smtp_from", "")

	v.SetDefault("sentry_dsn", "")
	v.SetDefault("metrics_path", "/metrics")
}

func validate(cfg *AppConfig) error {
	if cfg.DBURL == "" {
		return &utils.ConfigurationError{Setting: "DB_URL", Reason: "is required"}
	}
	if cfg.RedisURL == "" {
		return &utils.ConfigurationError{Setting: "REDIS_URL", Reason: "is required"}
	}
	if len(cfg.JWTSecret) < utils.MinSecretLength {
		return &utils.ConfigurationError{
			Setting: "JWT_SECRET",
			Reason:  fmt.Sprintf("must be at least %d bytes", utils.MinSecretLength),
		}
	}
	if cfg.JWTExpiration <= 0 {
		return &utils.ConfigurationError{Setting: "JWT_EXPIRATION", Reason: "must be positive"}
	}
	if len(cfg.RefreshTokenKey) != utils.RefreshKeyLength {
		return &utils.ConfigurationError{
			Setting: "REFRESH_TOKEN_KEY",
			Reason:  fmt.Sprintf("must be exactly %d bytes", utils.RefreshKeyLength),
		}
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return &utils.ConfigurationError{Setting: "CLINIC_TIMEZONE", Reason: err.Error()}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return &utils.ConfigurationError{Setting: "PORT", Reason: "must be a valid TCP port"}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
