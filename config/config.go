package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageBolt     = "bolt"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	DB         DBConfig
	Telegram   TelegramConfig
	Storefront StorefrontConfig
	Storage    StorageConfig
	Log        LogConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token string
}

type StorefrontConfig struct {
	BaseURL      string        // origin serving /orders/create/ and the csrftoken cookie
	CSRFToken    string        // optional seed for the csrftoken cookie
	HTTPTimeout  time.Duration // 0 disables the client timeout
	CatalogFile  string        // served catalog (YAML or JSON); empty uses the bundled menu
	BrandingFile string
	DataAPI      string // "postgres" enables the remote form backend

	// SessionIdleTTL drops a chat's in-memory session after this much
	// inactivity. Cart and user are persisted and reload on the next update.
	SessionIdleTTL time.Duration
}

type StorageConfig struct {
	Driver   string // bolt, postgres, memory
	BoltPath string
}

type LogConfig struct {
	Level string
	Mode  string // production or development
	File  string // rotated with lumberjack when set
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}
	idleTTL, err := time.ParseDuration(getEnv("SESSION_IDLE_TTL", "24h"))
	if err != nil || idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "bakery"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TOKEN", ""),
		},
		Storefront: StorefrontConfig{
			BaseURL:        strings.TrimRight(getEnv("BASE_URL", "http://localhost:8000"), "/"),
			CSRFToken:      getEnv("CSRF_TOKEN", ""),
			HTTPTimeout:    timeout,
			CatalogFile:    getEnv("CATALOG_FILE", ""),
			BrandingFile:   getEnv("BRANDING_FILE", ""),
			DataAPI:        strings.ToLower(getEnv("DATA_API", "")),
			SessionIdleTTL: idleTTL,
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageBolt)),
			BoltPath: getEnv("BOLT_PATH", "storefront.db"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Mode:  getEnv("LOG_MODE", "production"),
			File:  getEnv("LOG_FILE", ""),
		},
	}, nil
}

// UsesPostgres reports whether any configured component needs the pgx pool.
func (c *Config) UsesPostgres() bool {
	return c.Storage.Driver == StoragePostgres || c.Storefront.DataAPI == StoragePostgres
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
