package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "NexaBank Onboarding"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultBankTimeout      = 15 * time.Second
	defaultSessionTTL       = 30 * time.Minute
	defaultLoginAttempts    = 5
	defaultVerificationCode = "9999"
	defaultAdminUsername    = "admin"
	defaultAdminPassword    = "admin"
	devSessionSecret        = "nexabank-dev-session-secret"
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName                   string
	AppEnv                    string
	Port                      string
	LogLevel                  string
	LogFormat                 string
	DatabaseURL               string
	RedisURL                  string
	BankURL                   string
	BankTimeout               time.Duration
	LoginRequiresVerification bool
	VerificationCode          string
	SessionSecret             string
	SessionTTL                time.Duration
	LoginAttemptsPerMinute    int
	AdminUsername             string
	AdminPassword             string
	ShutdownPeriod            time.Duration
	IdempotencyTTL            time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
// Outside development the database, Redis and session secret are mandatory.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		BankURL:          strings.TrimRight(os.Getenv("BANK_API_URL"), "/"),
		VerificationCode: getEnv("VERIFICATION_CODE", defaultVerificationCode),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		AdminUsername:    getEnv("ADMIN_USERNAME", defaultAdminUsername),
		AdminPassword:    getEnv("ADMIN_PASSWORD", defaultAdminPassword),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.BankTimeout, err = durationEnv("", "BANK_TIMEOUT", defaultBankTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationEnv("", "SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginRequiresVerification, err = boolEnv("LOGIN_REQUIRES_VERIFICATION", true); err != nil {
		return Config{}, err
	}
	if cfg.LoginAttemptsPerMinute, err = intEnv("LOGIN_ATTEMPTS_PER_MINUTE", defaultLoginAttempts); err != nil {
		return Config{}, err
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}
	if cfg.LoginAttemptsPerMinute <= 0 {
		return Config{}, fmt.Errorf("LOGIN_ATTEMPTS_PER_MINUTE must be positive")
	}

	if cfg.IsDevelopment() {
		if cfg.SessionSecret == "" {
			cfg.SessionSecret = devSessionSecret
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET must be set")
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs with development defaults.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads whole seconds from secondsKey, else a Go duration from durationKey.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
