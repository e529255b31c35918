package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ResumePolicy decides how the countdown is armed for a resumed attempt.
type ResumePolicy string

const (
	// ResumeElapsed subtracts the time already spent since started_at.
	ResumeElapsed ResumePolicy = "elapsed"
	// ResumeRestart re-arms the full duration on every Begin.
	ResumeRestart ResumePolicy = "restart"
)

// Config holds all application configuration.
type Config struct {
	APIURL       string        `binding:"required,url"`
	LogLevel     string        `binding:"required,oneof=trace debug info warn error fatal panic"`
	LogFormat    string        `binding:"required,oneof=pretty json"`
	HTTPTimeout  time.Duration `binding:"gt=0"`
	RedisURL     string        `binding:"omitempty,url"`
	DraftTTL     time.Duration `binding:"gt=0"`
	ResumePolicy ResumePolicy  `binding:"oneof=elapsed restart"`
	TickInterval time.Duration `binding:"gt=0"`
	TokenFile    string        `binding:"required"`

	// Fake backend (cmd/fakeapi) settings.
	ServerPort string `binding:"required,numeric"`
	GinMode    string `binding:"oneof=debug release test"`
	JWTSecret  string `binding:"required,min=16"`
	JWTExpiry  time.Duration
	BcryptCost int `binding:"min=4,max=31"`
	LoginRate  int `binding:"min=0"`
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		APIURL:       strings.TrimRight(getEnv("EXAM_API_URL", "http://localhost:8000/api"), "/"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "pretty"),
		HTTPTimeout:  time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		RedisURL:     getEnv("REDIS_URL", ""),
		DraftTTL:     time.Duration(getEnvInt("DRAFT_TTL_HOURS", 24)) * time.Hour,
		ResumePolicy: ResumePolicy(strings.ToLower(getEnv("RESUME_POLICY", string(ResumeElapsed)))),
		TickInterval: time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		TokenFile:    getEnv("TOKEN_FILE", defaultTokenFile()),
		ServerPort:   getEnv("SERVER_PORT", "8000"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		JWTSecret:    getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:    time.Duration(getEnvInt("JWT_EXPIRY_MINUTES", 60)) * time.Minute,
		BcryptCost:   getEnvInt("BCRYPT_COST", 6),
		LoginRate:    getEnvInt("LOGIN_RATE_PER_MINUTE", 30),
	}
}

// Validate checks the loaded values with the given struct validator.
// The validator is passed in to keep this package free of import cycles.
func (c *Config) Validate(check func(interface{}) map[string]string) error {
	if fields := check(c); len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for k, v := range fields {
			parts = append(parts, k+": "+v)
		}
		return fmt.Errorf("invalid config: %s", strings.Join(parts, "; "))
	}
	return nil
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

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".examctl-token.json"
	}
	return filepath.Join(dir, "examctl", "token.json")
}
