package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samrogers05/genesis/internal/storage"
)

// Config is the server configuration.
type Config struct {
	Port              string
	AppEnv            string
	DatabaseURL       string // empty selects the in-memory store
	ValkeyURL         string // empty selects in-process realtime events
	JWTSecret         string
	CORSOrigin        string
	StorageURL        string
	StorageBucket     string
	StorageServiceKey string
	DailySignalBoosts int
	FeedLimit         int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	boosts, err := getEnvInt("DAILY_SIGNAL_BOOSTS", storage.DefaultDailyBoosts)
	if err != nil {
		return nil, err
	}
	feedLimit, err := getEnvInt("FEED_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		AppEnv:            normalizeEnv(getEnv("APP_ENV", "production")),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ValkeyURL:         getEnv("VALKEY_URL", ""),
		JWTSecret:         jwtSecret,
		CORSOrigin:        getEnv("CORS_ORIGIN", "http://127.0.0.1:5173"),
		StorageURL:        strings.TrimRight(getEnv("STORAGE_URL", ""), "/"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "project-photos"),
		StorageServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),
		DailySignalBoosts: boosts,
		FeedLimit:         feedLimit,
	}, nil
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// ClientConfig configures the terminal chat client.
type ClientConfig struct {
	BaseURL      string
	Token        string
	PollInterval time.Duration
	AppEnv       string
}

func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load()

	token := getEnv("GENESIS_TOKEN", "")
	if token == "" {
		return nil, fmt.Errorf("GENESIS_TOKEN is required")
	}

	interval := 10 * time.Second
	if raw := getEnv("CHAT_POLL_INTERVAL", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid CHAT_POLL_INTERVAL %q", raw)
		}
		interval = d
	}

	return &ClientConfig{
		BaseURL:      strings.TrimRight(getEnv("GENESIS_URL", "http://localhost:8080"), "/"),
		Token:        token,
		PollInterval: interval,
		AppEnv:       normalizeEnv(getEnv("APP_ENV", "development")),
	}, nil
}

func (c *ClientConfig) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *ClientConfig) IsProduction() bool { return c.AppEnv == "production" }

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return n, nil
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
