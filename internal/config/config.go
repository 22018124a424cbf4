package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingToken is returned by RequireDiscordToken when no bot token is set.
var ErrMissingToken = errors.New("DISCORD_TOKEN environment variable not set; create a .env file with your bot token")

type Config struct {
	Discord  DiscordConfig
	NWS      NWSConfig
	Poller   PollerConfig
	Delivery DeliveryConfig
	Storage  StorageConfig
	Server   ServerConfig
	Relay    RelayConfig
	Logging  LoggingConfig
}

type DiscordConfig struct {
	Token string
}

type NWSConfig struct {
	BaseURL   string
	Zone      string
	ZoneName  string
	Office    string
	GridX     int
	GridY     int
	UserAgent string
	Timeout   time.Duration
	RateLimit float64 // requests per second against the upstream API
}

type PollerConfig struct {
	Interval time.Duration
}

type DeliveryConfig struct {
	Concurrency int
	SendTimeout time.Duration
}

type StorageConfig struct {
	Driver           string // "file" or "sqlite"
	SeenPath         string
	DestinationsPath string
	SQLitePath       string
	SeenCap          int
}

type ServerConfig struct {
	Enabled   bool
	Host      string
	Port      int
	RateLimit int
}

// RelayConfig forwards delivered alerts to NATS. Empty URL disables it.
type RelayConfig struct {
	NATSURL string
	Subject string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Discord: DiscordConfig{
			Token: getEnv("DISCORD_TOKEN", ""),
		},
		NWS: NWSConfig{
			BaseURL:   strings.TrimRight(getEnv("NWS_API_BASE", "https://api.weather.gov"), "/"),
			Zone:      getEnv("NWS_ZONE", "MIC147"),
			ZoneName:  getEnv("NWS_ZONE_NAME", "St. Clair County, MI"),
			Office:    getEnv("NWS_OFFICE", "DTX"),
			GridX:     getEnvInt("NWS_GRID_X", 84),
			GridY:     getEnvInt("NWS_GRID_Y", 65),
			UserAgent: getEnv("NWS_USER_AGENT", "(go-weather-alerts, Discord Weather Alert Bot)"),
			Timeout:   getEnvDuration("NWS_TIMEOUT", 10*time.Second),
			RateLimit: getEnvFloat("NWS_RATE_LIMIT", 5),
		},
		Poller: PollerConfig{
			Interval: getEnvDuration("CHECK_INTERVAL", 60*time.Second),
		},
		Delivery: DeliveryConfig{
			Concurrency: getEnvInt("DELIVERY_CONCURRENCY", 4),
			SendTimeout: getEnvDuration("DELIVERY_SEND_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Driver:           strings.ToLower(getEnv("STORAGE_DRIVER", "file")),
			SeenPath:         getEnv("POSTED_ALERTS_FILE", "./data/posted_alerts.json"),
			DestinationsPath: getEnv("SERVER_CONFIG_FILE", "./data/server_config.json"),
			SQLitePath:       getEnv("DB_PATH", "./data/weather-alerts.db"),
			SeenCap:          getEnvInt("POSTED_ALERTS_CAP", 500),
		},
		Server: ServerConfig{
			Enabled:   getEnvBool("SERVER_ENABLED", true),
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("SERVER_RATE_LIMIT", 5),
		},
		Relay: RelayConfig{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: strings.Trim(getEnv("NATS_SUBJECT", "weather.alerts"), "."),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	for _, key := range []string{"NWS_TIMEOUT", "CHECK_INTERVAL", "DELIVERY_SEND_TIMEOUT"} {
		if val := os.Getenv(key); val != "" {
			if _, err := parseDuration(val); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireDiscordToken is checked by the bot binary only; one-shot tools
// that never open a platform session can run without it.
func (c *Config) RequireDiscordToken() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("server rate limit must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Poller.Interval < 10*time.Second {
		return fmt.Errorf("check interval must be at least 10 seconds")
	}
	if c.NWS.Timeout <= 0 {
		return fmt.Errorf("NWS timeout must be positive")
	}
	if c.NWS.RateLimit <= 0 {
		return fmt.Errorf("NWS rate limit must be positive")
	}
	if c.NWS.Zone == "" || c.NWS.Office == "" {
		return fmt.Errorf("NWS zone and office are required")
	}

	if c.Delivery.Concurrency < 1 {
		return fmt.Errorf("delivery concurrency must be at least 1")
	}
	if c.Delivery.SendTimeout <= 0 {
		return fmt.Errorf("delivery send timeout must be positive")
	}

	switch c.Storage.Driver {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	if c.Storage.SeenCap < 1 {
		return fmt.Errorf("posted alerts cap must be at least 1")
	}

	if c.Relay.NATSURL != "" && c.Relay.Subject == "" {
		return fmt.Errorf("NATS subject is required when NATS_URL is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := parseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// parseDuration accepts Go durations ("90s", "2m") or bare integer seconds.
func parseDuration(val string) (time.Duration, error) {
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(val)
}
