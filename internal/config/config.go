package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Render   RenderConfig
	Assets   AssetsConfig
	Presets  PresetsConfig
	LogLevel string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string
	ConsumerName  string
	KeyPrefix     string
	DraftTTL      time.Duration
}

// RenderConfig holds output sizes and render concurrency
type RenderConfig struct {
	DisplaySize int
	CanvasSize  int
	Workers     int
	Timeout     time.Duration
}

// AssetsConfig holds limits for fetching external images
type AssetsConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	RateLimit float64 // requests per second, 0 disables throttling
	Retries   int
	CacheTTL  time.Duration
	// Hosts restricts remote fetches to these hosts and their subdomains.
	// Empty allows any host.
	Hosts []string
}

// PresetsConfig holds the preset catalog location
type PresetsConfig struct {
	Path string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
		},
		Redis: RedisConfig{
			Addr:          getRedisAddr(),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			ConsumerGroup: getEnv("REDIS_CONSUMER_GROUP", "frame-exporters"),
			ConsumerName:  getEnv("REDIS_CONSUMER_NAME", ""),
			KeyPrefix:     getEnv("REDIS_KEY_PREFIX", "frames"),
			DraftTTL:      getEnvAsDuration("DRAFT_TTL", 7*24*time.Hour),
		},
		Render: RenderConfig{
			DisplaySize: getEnvAsInt("DISPLAY_SIZE", 320),
			CanvasSize:  getEnvAsInt("CANVAS_SIZE", 1024),
			Workers:     getEnvAsInt("RENDER_WORKERS", 4),
			Timeout:     getEnvAsDuration("RENDER_TIMEOUT", 30*time.Second),
		},
		Assets: AssetsConfig{
			Timeout:   getEnvAsDuration("ASSET_TIMEOUT", 10*time.Second),
			MaxBytes:  int64(getEnvAsInt("ASSET_MAX_BYTES", 10<<20)),
			RateLimit: getEnvAsFloat("ASSET_RATE_LIMIT", 20),
			Retries:   getEnvAsInt("ASSET_RETRIES", 2),
			CacheTTL:  getEnvAsDuration("ASSET_CACHE_TTL", 10*time.Minute),
			Hosts:     getEnvAsList("ASSET_ALLOWED_HOSTS"),
		},
		Presets: PresetsConfig{
			Path: getEnv("PRESETS_PATH", "/opt/presets"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// getRedisAddr resolves the Redis address from REDIS_URL, then REDIS_ADDR
func getRedisAddr() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		addr := strings.TrimPrefix(url, "redis://")
		return strings.TrimSuffix(addr, "/")
	}
	return getEnv("REDIS_ADDR", "localhost:6379")
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s") or whole seconds
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

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
