// Package config loads the rankings engine's configuration from a .env
// file merged over the process environment, the same two-step load the
// rest of the platform uses.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the rankings engine process.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Rankings  RankingsConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	Auth      AuthConfig
}

// AuthConfig holds the shared secret used to verify bearer tokens on the
// admin API.
type AuthConfig struct {
	JWTSecret string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int
	Host        string
	Environment string
}

// FirestoreConfig holds document-store connection configuration.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// RankingsConfig carries every tunable named in the external interface
// contract, with the documented defaults.
type RankingsConfig struct {
	StartingMu                       float64
	StartingSigma                    float64
	Beta                             float64
	Tau                              float64
	DrawProbability                  float64
	PlayoffWeight                    float64
	InactivityThresholdRounds        int
	InactivitySigmaInflationPerRound float64
	InactivitySigmaCap               float64
	MaxConcurrentGamesPerRound       int
	WriteBatchSize                   int
	HostDeadlineSeconds              int
}

// CacheConfig holds the Redis connection used for the distributed
// rebuild-exclusivity lock.
type CacheConfig struct {
	Enabled     bool
	Address     string
	Password    string
	Database    int
	DialTimeout time.Duration
	LockTTL     time.Duration
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Enabled     bool
	Level       string
	MainLogFile string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Compress    bool
}

// Load loads configuration from environment variables and an optional
// .env file.
func Load() (*Config, error) {
	loadEnvFile()
	return loadConfig(), nil
}

func loadEnvFile() {
	envFiles := []string{".env", "/etc/rankingsengine/.env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err == nil {
				logrus.WithField("file", f).Info("loaded .env file")
				return
			}
		}
	}
	logrus.Info("no .env file found, using system environment variables only")
}

func loadConfig() *Config {
	sigma0 := getFloat64Env("STARTING_SIGMA", 25.0/3)
	return &Config{
		Server: ServerConfig{
			Port:        getIntEnv("SERVER_PORT", 8080),
			Host:        getStringEnv("SERVER_HOST", "0.0.0.0"),
			Environment: getStringEnv("ENVIRONMENT", "development"),
		},
		Firestore: FirestoreConfig{
			ProjectID:       getStringEnv("FIRESTORE_PROJECT_ID", ""),
			CredentialsFile: getStringEnv("FIRESTORE_CREDENTIALS_FILE", ""),
		},
		Rankings: RankingsConfig{
			StartingMu:                       getFloat64Env("STARTING_MU", 25.0),
			StartingSigma:                    sigma0,
			Beta:                             getFloat64Env("BETA", sigma0/2),
			Tau:                              getFloat64Env("TAU", sigma0/100),
			DrawProbability:                  getFloat64Env("DRAW_PROBABILITY", 0.10),
			PlayoffWeight:                    getFloat64Env("PLAYOFF_WEIGHT", 2.0),
			InactivityThresholdRounds:        getIntEnv("INACTIVITY_THRESHOLD_ROUNDS", 3),
			InactivitySigmaInflationPerRound: getFloat64Env("INACTIVITY_SIGMA_INFLATION_PER_ROUND", sigma0/100),
			InactivitySigmaCap:               getFloat64Env("INACTIVITY_SIGMA_CAP", sigma0),
			MaxConcurrentGamesPerRound:       getIntEnv("MAX_CONCURRENT_GAMES_PER_ROUND", 8),
			WriteBatchSize:                   getIntEnv("WRITE_BATCH_SIZE", 500),
			HostDeadlineSeconds:              getIntEnv("HOST_DEADLINE_SECONDS", 540),
		},
		Cache: CacheConfig{
			Enabled:     getBoolEnv("CACHE_ENABLED", true),
			Address:     getStringEnv("CACHE_ADDRESS", "localhost:6379"),
			Password:    getStringEnv("CACHE_PASSWORD", ""),
			Database:    getIntEnv("CACHE_DATABASE", 0),
			DialTimeout: getDurationEnv("CACHE_DIAL_TIMEOUT", 5*time.Second),
			LockTTL:     getDurationEnv("CACHE_LOCK_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getStringEnv("AUTH_JWT_SECRET", ""),
		},
		Logging: LoggingConfig{
			Enabled:     getBoolEnv("LOG_ENABLED", true),
			Level:       getStringEnv("LOG_LEVEL", "info"),
			MainLogFile: getStringEnv("LOG_FILE_PATH", "./logs/rankingsengine.log"),
			MaxSizeMB:   getIntEnv("LOG_MAX_SIZE_MB", 100),
			MaxBackups:  getIntEnv("LOG_MAX_BACKUPS", 5),
			MaxAgeDays:  getIntEnv("LOG_MAX_AGE_DAYS", 30),
			Compress:    getBoolEnv("LOG_COMPRESS", true),
		},
	}
}

func getStringEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloat64Env(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
