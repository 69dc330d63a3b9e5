package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Issuer name shown by authenticator apps

	MaxFailedAttempts  int           // Optional: wrong passwords before an account locks (default: 5)
	LockDuration       time.Duration // Optional: how long a triggered account lock lasts (default: 15m)
	SessionLockTimeout time.Duration // Optional: session inactivity before a soft lock (default: 900s)
	ResetTokenTTL      time.Duration // Optional: password reset token lifetime (default: 1h)
	OTPWindow          int           // Optional: accepted TOTP clock drift in 30s steps (default: 1)
	BootstrapToken     string        // Optional: token for first-run admin creation (empty disables bootstrap)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./gatekeep.db)
	PepperFile          string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer: getEnvOrDefault("GATEKEEP_OTP_ISSUER", "GateKeep"),

		MaxFailedAttempts:  getEnvIntOrDefault("GATEKEEP_MAX_FAILED_ATTEMPTS", 5),
		LockDuration:       getEnvDurationOrDefault("GATEKEEP_LOCK_DURATION", 15*time.Minute),
		SessionLockTimeout: getEnvDurationOrDefault("GATEKEEP_SESSION_LOCK_TIMEOUT", 900*time.Second),
		ResetTokenTTL:      getEnvDurationOrDefault("GATEKEEP_RESET_TOKEN_TTL", time.Hour),
		OTPWindow:          getEnvIntOrDefault("GATEKEEP_OTP_WINDOW", 1),
		BootstrapToken:     getEnvOrDefault("GATEKEEP_BOOTSTRAP_TOKEN", ""),

		DatabaseFile:        getEnvOrDefault("GATEKEEP_DATABASE_FILE", "gatekeep.db"),
		PepperFile:          getEnvOrDefault("GATEKEEP_PEPPER_FILE", "pepper"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are taken as seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
