package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Roster    RosterConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// Timeout bounds every store operation issued by the services.
	Timeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Enabled switches the rate governor from the in-memory
	// implementation to the Redis-backed one.
	Enabled bool
}

type AuthConfig struct {
	JWTSecret string
}

type RateLimitConfig struct {
	// Per-actor budget across all conversations.
	ActorLimit  int
	ActorWindow time.Duration
	// Per-actor budget within a single conversation.
	ConversationLimit  int
	ConversationWindow time.Duration
}

type RosterConfig struct {
	// RefreshInterval controls how often the mention scanner's
	// customer/staff name snapshot is reloaded.
	RefreshInterval time.Duration
}

// LoadConfig loads configuration from environment variables.
// A .env file is honored when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "backoffice"),
			Timeout:  getEnvAsDuration("DB_TIMEOUT_SECONDS", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_RATELIMIT_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		},
		RateLimit: RateLimitConfig{
			ActorLimit:         getEnvAsInt("RATE_ACTOR_LIMIT", 120),
			ActorWindow:        getEnvAsDuration("RATE_ACTOR_WINDOW_SECONDS", time.Minute),
			ConversationLimit:  getEnvAsInt("RATE_CONVERSATION_LIMIT", 30),
			ConversationWindow: getEnvAsDuration("RATE_CONVERSATION_WINDOW_SECONDS", time.Minute),
		},
		Roster: RosterConfig{
			RefreshInterval: getEnvAsDuration("ROSTER_REFRESH_SECONDS", time.Minute),
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
	if value, err := strconv.Atoi(strValue); err == nil && value > 0 {
		return time.Duration(value) * time.Second
	}
	return fallback
}
