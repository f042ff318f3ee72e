// Package config loads all runtime configuration from environment
// variables. Required variables halt startup with a fatal log when
// missing; optional tuning knobs fall back to sensible defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core application settings. Rate limiting and response
// caching have their own structs (RateLimitConfig, CacheConfig) because
// they carry many tuning knobs of their own.
type Config struct {
	Env            string   // "dev", "test" or "prod"
	Port           string   // HTTP port to listen on
	DBUser         string   // MySQL username
	DBPass         string   // MySQL password, empty allowed for local dev
	DBHost         string   // MySQL host
	DBPort         string   // MySQL port
	DBName         string   // MySQL schema name
	JWTSecret      string   // HS256 signing secret for access tokens
	AccessTTLMin   int      // access token lifetime in minutes
	RefreshTTLDays int      // refresh token lifetime in days
	BridgeKeyHash  string   // bcrypt hash of the frontend bridge API key
	AllowedOrigins []string // CORS origins allowed to call the API
}

// Load reads the configuration from the environment. Missing required
// variables are fatal: a server with half a configuration should never
// come up.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BridgeKeyHash:  must("BRIDGE_API_KEY_HASH"),
		AllowedOrigins: splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must() plus integer conversion.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Optional-variable helpers shared by the rate limit and cache loaders.

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
