package ml

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

// BaseConfig provides common configuration functionality
type BaseConfig struct {
	ConfigPath string `json:"-" yaml:"-"`
}

// LoadConfig loads configuration from a file, falling back to environment variables.
// A file that exists but cannot be parsed is an error.
func (c *BaseConfig) LoadConfig(configPath string, envPrefix string, config interface{}) error {
	candidates := []string{}
	if configPath != "" {
		candidates = append(candidates, configPath)
	}
	candidates = append(candidates,
		filepath.Join("config", envPrefix+".json"),
		filepath.Join("config", envPrefix+".yaml"),
	)

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s config %s: %w", envPrefix, path, err)
		}
		if err := unmarshalConfig(path, data, config); err != nil {
			return fmt.Errorf("failed to parse %s config %s: %w", envPrefix, path, err)
		}
		log.Printf("Loaded %s configuration from file: %s", envPrefix, path)
		return nil
	}

	// Fall back to environment variables
	log.Printf("Using environment variables for %s configuration", envPrefix)
	return nil
}

func unmarshalConfig(path string, data []byte, out interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

// GeminiConfig holds configuration for the Gemini REST endpoint
type GeminiConfig struct {
	BaseConfig     `json:"-" yaml:"-"`
	APIKey         string `json:"api_key" yaml:"api_key"`
	APIURL         string `json:"api_url" yaml:"api_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Load loads the Gemini configuration
func (c *GeminiConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "gemini", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.APIURL == "" {
		c.APIURL = os.Getenv("GEMINI_API_URL")
	}
	if c.TimeoutSeconds == 0 {
		if v, err := strconv.Atoi(os.Getenv("GEMINI_TIMEOUT_SECONDS")); err == nil {
			c.TimeoutSeconds = v
		}
	}

	return c.Validate()
}

// Validate checks the settings that must be present before the server starts
func (c *GeminiConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: gemini api key is not configured", ErrConfiguration)
	}
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("%w: gemini api url is not configured", ErrConfiguration)
	}
	if !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("%w: gemini api url must use https", ErrConfiguration)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: gemini timeout must not be negative", ErrConfiguration)
	}
	return nil
}

// Timeout returns the HTTP client timeout, 60s when unset
func (c *GeminiConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// VertexConfig holds configuration for the Vertex AI backend
type VertexConfig struct {
	BaseConfig      `json:"-" yaml:"-"`
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Location        string `json:"location" yaml:"location"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Model           string `json:"model" yaml:"model"`
}

// Load loads the Vertex AI configuration
func (c *VertexConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "vertex", c); err != nil {
		return err
	}

	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if c.Location == "" {
		c.Location = os.Getenv("GOOGLE_LOCATION")
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.Model == "" {
		c.Model = os.Getenv("VERTEX_MODEL")
	}
	if c.Model == "" {
		c.Model = "gemini-1.5-flash"
	}

	if c.ProjectID == "" || c.Location == "" {
		return fmt.Errorf("%w: vertex project id and location are required", ErrConfiguration)
	}
	return nil
}
