package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Port                  string   `json:"port" yaml:"port"`
		Debug                 bool     `json:"debug" yaml:"debug"`
		AllowedOrigins        []string `json:"allowed_origins" yaml:"allowed_origins"`
		RequestTimeoutSeconds int      `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
		MaxUploadMB           int      `json:"max_upload_mb" yaml:"max_upload_mb"`
	} `json:"server" yaml:"server"`

	ML struct {
		Type       string `json:"type" yaml:"type"` // "gemini" or "vertex"
		ConfigPath string `json:"config_path" yaml:"config_path"`
	} `json:"ml" yaml:"ml"`
}

// LoadConfig loads configuration from a JSON or YAML file. A missing file is
// not an error: defaults and environment variables are used instead.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("Config file %s not found, using defaults and environment", configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := unmarshal(configPath, data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()

	// Handle missing values
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
	if config.Server.RequestTimeoutSeconds == 0 {
		config.Server.RequestTimeoutSeconds = 90
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 10
	}
	if config.ML.Type == "" {
		config.ML.Type = "gemini"
	}

	if config.Server.RequestTimeoutSeconds < 0 {
		return nil, fmt.Errorf("request timeout must not be negative")
	}
	if config.Server.MaxUploadMB < 0 {
		return nil, fmt.Errorf("max upload size must not be negative")
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if debug, err := strconv.ParseBool(os.Getenv("ECOSCAN_DEBUG")); err == nil {
		c.Server.Debug = debug
	}
	if modelType := os.Getenv("ECOSCAN_MODEL"); modelType != "" {
		c.ML.Type = modelType
	}
}

func unmarshal(path string, data []byte, out *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

// RequestTimeout returns the deadline applied to each scan
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the multipart memory limit
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("ECOSCAN_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}
