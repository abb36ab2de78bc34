// Package config reads the application configuration from environment
// variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Storage backend names accepted in STORAGE_BACKEND.
const (
	StorageLocal    = "local"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	// Server
	Port  int
	Debug bool

	// Storage
	StorageBackend string
	DataDir        string
	SQLitePath     string
	DatabaseURL    string

	// RabbitMQ; empty disables event publishing
	RabbitMQURL string

	// Activities
	ActivitiesPath string

	// Solution gate; empty means reveals are not PIN-protected
	ParentPIN string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dataDir := getEnv("AULA_DATA_DIR", defaultDataDir())
	cfg := &Config{
		Port:           getEnvInt("PORT", 8080),
		Debug:          getEnvBool("DEBUG", false),
		StorageBackend: getEnv("STORAGE_BACKEND", StorageLocal),
		DataDir:        dataDir,
		SQLitePath:     getEnv("SQLITE_PATH", filepath.Join(dataDir, "progress.db")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		ActivitiesPath: getEnv("ACTIVITIES_PATH", "./activities"),
		ParentPIN:      getEnv("PARENT_PIN", ""),
	}
	return cfg, nil
}

// EnsureDataDir creates the data directory and its logs subdirectory,
// returning the directory path.
func (c *Config) EnsureDataDir() (string, error) {
	if err := os.MkdirAll(filepath.Join(c.DataDir, "logs"), 0755); err != nil {
		return "", err
	}
	return c.DataDir, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aula"
	}
	return filepath.Join(home, ".aula")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
