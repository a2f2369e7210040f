package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API      APIConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
	Scanner  ScannerConfig
	Search   SearchConfig
	Cache    CacheConfig
}

// APIConfig describe el backend REST que es la fuente de verdad
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DatabaseConfig es opcional: sin URL el journal de finalización queda en memoria
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	SessionTTL time.Duration
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type LoggingConfig struct {
	Level string
}

type ScannerConfig struct {
	MaxKeyGap time.Duration
	MinLength int
}

type SearchConfig struct {
	ProductDebounce time.Duration
	ClientDebounce  time.Duration
	MinQueryLength  int
}

type CacheConfig struct {
	TTL       time.Duration
	MaxL1Size int
}

func Load() (*Config, error) {
	// Cargar .env si existe, no es crítico si falta
	_ = godotenv.Load()

	config := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
			Timeout: getEnvAsDuration("API_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: time.Duration(getEnvAsInt("DB_CONN_MAX_LIFETIME", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			SessionTTL: getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Scanner: ScannerConfig{
			MaxKeyGap: time.Duration(getEnvAsInt("SCAN_GAP_MS", 50)) * time.Millisecond,
			MinLength: getEnvAsInt("SCAN_MIN_LENGTH", 3),
		},
		Search: SearchConfig{
			ProductDebounce: time.Duration(getEnvAsInt("PRODUCT_SEARCH_DEBOUNCE_MS", 400)) * time.Millisecond,
			ClientDebounce:  time.Duration(getEnvAsInt("CLIENT_SEARCH_DEBOUNCE_MS", 300)) * time.Millisecond,
			MinQueryLength:  getEnvAsInt("SEARCH_MIN_QUERY_LENGTH", 2),
		},
		Cache: CacheConfig{
			TTL:       getEnvAsDuration("PRODUCT_CACHE_TTL", 10*time.Minute),
			MaxL1Size: getEnvAsInt("PRODUCT_CACHE_L1_SIZE", 2000),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration acepta "30s", "5m" o un número de segundos
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
