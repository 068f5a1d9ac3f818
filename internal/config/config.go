package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-based settings
type Config struct {
	Environment   string
	LogLevel      string
	DatabaseURL   string
	JWTSecret     string
	ServerAddress string

	RedisAddress     string
	RedisUsername    string
	RedisPassword    string
	CalendarCacheTTL time.Duration

	MQTTBrokerURL string
	MQTTClientID  string

	UseSpaces       bool
	SpacesEndpoint  string
	SpacesRegion    string
	SpacesBucket    string
	SpacesCDNURL    string
	SpacesAccessKey string
	SpacesSecretKey string
	ExportDir       string

	PluginsFile     string
	DefaultTimezone *time.Location
	RepeatHorizon   time.Duration
	ICSExportCron   string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables
// win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a getenv-style lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:   getenv("APP_ENV"),
		LogLevel:      orDefault(getenv("LOG_LEVEL"), "info"),
		DatabaseURL:   getenv("DATABASE_URL"),
		JWTSecret:     getenv("JWT_SECRET"),
		ServerAddress: orDefault(getenv("SERVER_ADDRESS"), ":8080"),

		RedisAddress:  getenv("REDIS_ADDRESS"),
		RedisUsername: getenv("REDIS_USERNAME"),
		RedisPassword: getenv("REDIS_PASSWORD"),

		MQTTBrokerURL: getenv("MQTT_BROKER_URL"),
		MQTTClientID:  orDefault(getenv("MQTT_CLIENT_ID"), "almanac"),

		UseSpaces:       getenv("USE_SPACES") == "true",
		SpacesEndpoint:  getenv("SPACES_ENDPOINT"),
		SpacesRegion:    getenv("SPACES_REGION"),
		SpacesBucket:    getenv("SPACES_BUCKET"),
		SpacesCDNURL:    getenv("SPACES_CDN_URL"),
		SpacesAccessKey: getenv("SPACES_ACCESS_KEY"),
		SpacesSecretKey: getenv("SPACES_SECRET_KEY"),
		ExportDir:       orDefault(getenv("EXPORT_DIR"), "./exports"),

		PluginsFile:   getenv("PLUGINS_FILE"),
		ICSExportCron: getenv("ICS_EXPORT_CRON"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.CalendarCacheTTL, err = duration(getenv, "CALENDAR_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	tz := orDefault(getenv("DEFAULT_TIMEZONE"), "UTC")
	if cfg.DefaultTimezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}

	days, err := integer(getenv, "REPEAT_HORIZON_DAYS", 365)
	if err != nil {
		return nil, err
	}
	cfg.RepeatHorizon = time.Duration(days) * 24 * time.Hour

	if cfg.RateLimitBurst, err = integer(getenv, "RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	cfg.RateLimitRPS = 10
	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		if cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
	}

	if cfg.UseSpaces && (cfg.SpacesBucket == "" || cfg.SpacesEndpoint == "") {
		return nil, fmt.Errorf("SPACES_ENDPOINT and SPACES_BUCKET are required when USE_SPACES=true")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func integer(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
