// Package config loads server configuration from the environment, with an
// optional .env overlay for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	AuthSecret     string
	TokenTTL       time.Duration
	HoldTTL        time.Duration
	ReportCacheTTL time.Duration
	LogLevel       string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() Config {
	godotenv.Load()

	return Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		AuthSecret:     getEnv("AUTH_SECRET", ""),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 12*time.Hour),
		HoldTTL:        getEnvDuration("HOLD_TTL", 24*time.Hour),
		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", time.Minute),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func (c Config) Address() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
