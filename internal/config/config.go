package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"odbcbridge/internal/core"

	"github.com/joho/godotenv"
)

const (
	DefaultDriver         = "odbc"
	DefaultConnectTimeout = 10 * time.Second
	DefaultQueryTimeout   = 30 * time.Second
	DefaultDriverFilter   = "tally,odbc"
	DefaultLogLevel       = "warn"
)

type Config struct {
	Driver         string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	DriverFilter   []string
	LogLevel       string
	LogDir         string
	BridgeKey      string
	AuditDBPath    string

	// Warnings collected while loading; logged once the logger is up.
	Warnings []string
}

func Load() *Config {
	// Try loading .env files, but don't fail if they don't exist
	loadEnvFiles()

	cfg := &Config{
		Driver:       getEnv("ODBCBRIDGE_DRIVER", DefaultDriver),
		DriverFilter: core.SplitList(getEnv("ODBCBRIDGE_DRIVER_FILTER", DefaultDriverFilter)),
		LogLevel:     getEnv("ODBCBRIDGE_LOG_LEVEL", DefaultLogLevel),
		LogDir:       os.Getenv("ODBCBRIDGE_LOG_DIR"),
		BridgeKey:    os.Getenv("ODBCBRIDGE_KEY"),
		AuditDBPath:  os.Getenv("ODBCBRIDGE_AUDIT_DB"),
	}
	cfg.ConnectTimeout = cfg.duration("ODBCBRIDGE_CONNECT_TIMEOUT", DefaultConnectTimeout)
	cfg.QueryTimeout = cfg.duration("ODBCBRIDGE_QUERY_TIMEOUT", DefaultQueryTimeout)
	return cfg
}

// loadEnvFiles reads .env from the working directory and then from the
// executable's directory. godotenv never overrides variables already set, so
// the process environment wins, then the working directory.
func loadEnvFiles() {
	_ = godotenv.Load()
	if exePath, err := os.Executable(); err == nil {
		envPath := filepath.Join(filepath.Dir(exePath), ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
		}
	}
}

func (c *Config) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := parseDuration(raw)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q ignored: %v; using %s", key, raw, err, def))
		return def
	}
	return d
}

// parseDuration accepts Go durations ("15s", "1m") and bare integer seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}
