package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds the server settings. Values come from .env, then the
// environment, then command-line flags, later sources winning.
type Config struct {
	Port         string
	GinMode      string
	DBDriver     string
	DBDSN        string
	DBLogLevel   string
	LogLevel     string
	LogFile      string
	CORSOrigins  []string
	UserCacheTTL time.Duration

	// CachePurgeEvery is how often expired user cache entries are dropped.
	CachePurgeEvery time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration
}

// DevJWTSecret signs tokens when JWT_SECRET is unset. Release mode refuses it.
const DevJWTSecret = "development-insecure-secret-change-me"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration for the server binary. args excludes the program name.
func Load(args []string) (Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("USER_CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid USER_CACHE_TTL: %w", err)
	}
	purge, err := time.ParseDuration(getEnv("CACHE_PURGE_INTERVAL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CACHE_PURGE_INTERVAL: %w", err)
	}
	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	cfg := Config{
		Port:         getEnv("PORT", "8008"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		DBDriver:     getEnv("DB_DRIVER", DriverSQLite),
		DBDSN:        getEnv("DB_DSN", "projects.db"),
		DBLogLevel:   getEnv("DB_LOG_LEVEL", "warn"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      os.Getenv("LOG_FILE"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		UserCacheTTL: ttl,

		CachePurgeEvery: purge,

		JWTSecret:   getEnv("JWT_SECRET", DevJWTSecret),
		JWTIssuer:   getEnv("JWT_ISSUER", "project-management-api"),
		JWTAudience: getEnv("JWT_AUDIENCE", "project-management-clients"),
		JWTTTL:      jwtTTL,
	}

	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.GinMode, "gin-mode", cfg.GinMode, "gin mode: debug, release or test")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: sqlite or postgres")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database file (sqlite) or connection string (postgres)")
	fs.StringVar(&cfg.DBLogLevel, "db-log-level", cfg.DBLogLevel, "SQL log level: silent, error, warn or info")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file with rotation instead of stdout")
	fs.StringSliceVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "allowed CORS origin (repeatable)")
	fs.DurationVar(&cfg.UserCacheTTL, "user-cache-ttl", cfg.UserCacheTTL, "how long user lookups are cached")
	fs.DurationVar(&cfg.CachePurgeEvery, "cache-purge-interval", cfg.CachePurgeEvery, "how often expired cache entries are dropped")
	fs.StringVar(&cfg.JWTIssuer, "jwt-issuer", cfg.JWTIssuer, "JWT issuer claim")
	fs.StringVar(&cfg.JWTAudience, "jwt-audience", cfg.JWTAudience, "JWT audience claim")
	fs.DurationVar(&cfg.JWTTTL, "jwt-ttl", cfg.JWTTTL, "lifetime of issued tokens")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.GinMode == "release" && c.JWTSecret == DevJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in release mode")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}
	if c.CachePurgeEvery <= 0 {
		return fmt.Errorf("cache purge interval must be positive")
	}
	return nil
}

// Addr returns the listen address for gin.
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
