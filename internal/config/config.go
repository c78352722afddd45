package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the client.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	App      AppConfig
	API      APIConfig
	Push     PushConfig
	Redis    RedisConfig
	Snapshot SnapshotConfig
	Debug    DebugConfig
}

type AppConfig struct {
	Environment    string
	PageSize       int
	ReconnectDelay time.Duration
}

type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type PushConfig struct {
	WebSocketURL string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type SnapshotConfig struct {
	Enabled bool
	Path    string
}

type DebugConfig struct {
	Enabled bool
	Addr    string
}

// LoadConfig loads configuration from environment variables.
// Defaults can be set here if needed.
func LoadConfig() (*Config, error) {
	return &Config{
		App: AppConfig{
			Environment:    getEnv("APP_ENV", "development"),
			PageSize:       getEnvAsInt("PAGE_SIZE", 20),
			ReconnectDelay: getEnvAsDuration("RECONNECT_DELAY", 3*time.Second),
		},
		API: APIConfig{
			BaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
			Token:   getEnv("API_TOKEN", ""),
			Timeout: getEnvAsDuration("API_TIMEOUT", 10*time.Second),
		},
		Push: PushConfig{
			WebSocketURL: getEnv("PUSH_WS_URL", "ws://localhost:8080/ws"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Snapshot: SnapshotConfig{
			Enabled: getEnvAsBool("SNAPSHOT_ENABLED", false),
			Path:    getEnv("SNAPSHOT_PATH", "./data/snapshot"),
		},
		Debug: DebugConfig{
			Enabled: getEnvAsBool("DEBUG_API_ENABLED", false),
			Addr:    getEnv("DEBUG_API_ADDR", ":9090"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
