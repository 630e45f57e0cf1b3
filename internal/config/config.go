package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MemoryDB as DB_CONN selects the in-process user store instead of Postgres.
// Users are lost on restart.
const MemoryDB = "memory"

// Config holds application configuration
type Config struct {
	Port           string
	DBConn         string
	LogLevel       string
	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int
	RunMigrations  bool
	CORS           CORSConfig
}

// CORSConfig describes the cross-origin policy applied to every route.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
}

// allMethods is what "*" expands to in CORS_ALLOWED_METHODS.
var allMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	ttlMinutes, err := strconv.Atoi(getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
	}
	cost, err := strconv.Atoi(getEnv("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost)))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	allowCredentials, err := strconv.ParseBool(getEnv("CORS_ALLOW_CREDENTIALS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CORS_ALLOW_CREDENTIALS: %w", err)
	}
	runMigrations, err := strconv.ParseBool(getEnv("RUN_MIGRATIONS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_MIGRATIONS: %w", err)
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5432 user=social password=social dbname=social sslmode=disable"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		AccessTokenTTL: time.Duration(ttlMinutes) * time.Minute,
		BcryptCost:     cost,
		RunMigrations:  runMigrations,
		CORS: CORSConfig{
			AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001")),
			AllowCredentials: allowCredentials,
			AllowedMethods:   expandMethods(splitList(getEnv("CORS_ALLOWED_METHODS", "*"))),
			AllowedHeaders:   splitList(getEnv("CORS_ALLOWED_HEADERS", "*")),
			ExposedHeaders:   splitList(getEnv("CORS_EXPOSED_HEADERS", "*")),
		},
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	for _, origin := range cfg.CORS.AllowedOrigins {
		// A wildcard origin together with credentials would reflect any caller.
		if origin == "*" && cfg.CORS.AllowCredentials {
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be * when credentials are allowed")
		}
	}

	return cfg, nil
}

// InMemory reports whether the service runs without a database
func (c *Config) InMemory() bool {
	return c.DBConn == MemoryDB
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandMethods(methods []string) []string {
	for _, m := range methods {
		if m == "*" {
			return allMethods
		}
	}
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, strings.ToUpper(m))
	}
	return out
}
