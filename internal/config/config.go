package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Storage  StorageConfig
	Logging  LoggingConfig
	Server   ServerConfig
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

type PostgresConfig struct {
	DSN     string
	Enabled bool
}

type StorageConfig struct {
	DataDir     string
	CatalogFile string
	ProfilesDir string
	ImagesDir   string
}

type LoggingConfig struct {
	Level string
	File  string
}

type ServerConfig struct {
	Host string
	Port int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			EnableFallback: getEnvBool("GEMINI_ENABLE_FALLBACK", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", false),
		},
		Postgres: PostgresConfig{
			DSN:     getEnv("POSTGRES_DSN", ""),
			Enabled: getEnvBool("POSTGRES_ENABLED", false),
		},
		Storage: StorageConfig{
			DataDir:     getEnv("DATA_DIR", "data"),
			CatalogFile: getEnv("CATALOG_FILE", "data/test_prompts.json"),
			ProfilesDir: getEnv("PROFILES_DIR", "data/profiles"),
			ImagesDir:   getEnv("IMAGES_DIR", "data/images"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "logs/lab.log"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields every deployment needs. Provider keys are
// checked at provider construction instead, so offline analysis commands
// can run without them.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Storage.CatalogFile == "" {
		return fmt.Errorf("CATALOG_FILE is required")
	}
	if c.Storage.ProfilesDir == "" {
		return fmt.Errorf("PROFILES_DIR is required")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when POSTGRES_ENABLED is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
