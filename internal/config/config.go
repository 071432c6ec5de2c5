package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DBPath            string `yaml:"db_path"`
	FileDir           string `yaml:"file_dir"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	DefaultActor      string `yaml:"default_actor"`
	LogLevel          string `yaml:"log_level"`
	Output            string `yaml:"output"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/propmove/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		SessionTTLMinutes: 60,
		LogLevel:          "info",
		Output:            "table",
	}

	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional
	_ = loadYAMLConfig(cfg)

	if dbPath := getEnvOrFile("PROPMOVE_DB_PATH", "PROPMOVE_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if fileDir := os.Getenv("PROPMOVE_FILE_DIR"); fileDir != "" {
		cfg.FileDir = fileDir
	}
	if logLevel := os.Getenv("PROPMOVE_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("PROPMOVE_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if actor := os.Getenv("PROPMOVE_ACTOR"); actor != "" {
		cfg.DefaultActor = actor
	}
	if ttl := os.Getenv("PROPMOVE_SESSION_TTL_MIN"); ttl != "" {
		var minutes int
		if _, err := fmt.Sscanf(ttl, "%d", &minutes); err == nil && minutes > 0 {
			cfg.SessionTTLMinutes = minutes
		}
	}

	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(".propmove/propmove.db"); err == nil {
			cfg.DBPath = ".propmove/propmove.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "propmove", "propmove.db")
		}
	}

	if cfg.FileDir == "" {
		if cfg.DBPath == ".propmove/propmove.db" {
			cfg.FileDir = ".propmove/files"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.FileDir = filepath.Join(homeDir, ".local", "share", "propmove", "files")
		}
	}

	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/propmove/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "propmove", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return string(data)
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// GetActorID returns the acting user from environment or config.
// Priority: PROPMOVE_ACTOR_ID > PROPMOVE_ACTOR > config.default_actor
func (c *Config) GetActorID() string {
	if actorID := os.Getenv("PROPMOVE_ACTOR_ID"); actorID != "" {
		return actorID
	}
	if actor := os.Getenv("PROPMOVE_ACTOR"); actor != "" {
		return actor
	}
	return c.DefaultActor
}
