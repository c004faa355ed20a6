package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	LogLevel               string
	CORSAllowOrigins       string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTRefreshSecret       string
	ChannelBase            string
	ProgressCacheTTL       time.Duration
	RecomputeConcurrency   int
	ProgressCountedKinds   []string
	NotificationBufferSize int
	EventRateLimit         int
	EventRateWindow        time.Duration
}

// IsDevelopment reports whether the service runs in a development environment.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA LMS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("channel.base", "gema:lms")
	v.SetDefault("progress.cache_ttl", "5m")
	v.SetDefault("progress.recompute_concurrency", 8)
	v.SetDefault("progress.counted_kinds", "resource,assignment,quiz")
	v.SetDefault("notification.buffer_size", 64)
	v.SetDefault("progress.event_rate_limit", 60)
	v.SetDefault("progress.event_rate_window", "1m")

	ttl, err := parseDuration(v.GetString("progress.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid progress cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("progress.event_rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid progress event rate window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               v.GetString("log.level"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		ChannelBase:            v.GetString("channel.base"),
		ProgressCacheTTL:       ttl,
		RecomputeConcurrency:   v.GetInt("progress.recompute_concurrency"),
		ProgressCountedKinds:   splitList(v.GetString("progress.counted_kinds")),
		NotificationBufferSize: v.GetInt("notification.buffer_size"),
		EventRateLimit:         v.GetInt("progress.event_rate_limit"),
		EventRateWindow:        window,
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.RecomputeConcurrency <= 0 {
		cfg.RecomputeConcurrency = 8
	}

	if cfg.NotificationBufferSize <= 0 {
		cfg.NotificationBufferSize = 64
	}

	if len(cfg.ProgressCountedKinds) == 0 {
		return Config{}, fmt.Errorf("progress counted kinds must not be empty")
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
