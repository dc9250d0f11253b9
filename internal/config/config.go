package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string
	CORSOrigin string
	// InternalServiceKey unlocks the internal rate tier via X-Service-Auth.
	InternalServiceKey string

	// SessionTTL is how long an idle configuration session is kept before it expires.
	SessionTTL time.Duration
	// CatalogFetchTimeout bounds every background catalog hydration fetch.
	CatalogFetchTimeout time.Duration
}

const (
	defaultAppPort             = "8080"
	defaultSessionTTL          = 30 * time.Minute
	defaultCatalogFetchTimeout = 10 * time.Second
	defaultCORSOrigin          = "http://localhost:4200"
)

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:              os.Getenv("DB_HOST"),
		DBUser:              os.Getenv("DB_USER"),
		DBPassword:          os.Getenv("DB_PASSWORD"),
		DBName:              os.Getenv("DB_NAME"),
		DBPort:              os.Getenv("DB_PORT"),
		AppPort:             envOr("APP_PORT", defaultAppPort),
		AppEnv:              os.Getenv("APP_ENV"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CORSOrigin:          envOr("CORS_ORIGIN", defaultCORSOrigin),
		InternalServiceKey:  os.Getenv("INTERNAL_SERVICE_KEY"),
		SessionTTL:          envDuration("SESSION_TTL_MINUTES", time.Minute, defaultSessionTTL),
		CatalogFetchTimeout: envDuration("CATALOG_FETCH_TIMEOUT_SECONDS", time.Second, defaultCatalogFetchTimeout),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration reads an integer env var expressed in unit. Missing or
// non-positive values fall back to def.
func envDuration(key string, unit, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("invalid %s=%q, using default %s", key, raw, def)
		return def
	}
	return time.Duration(n) * unit
}
