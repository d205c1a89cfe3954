package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Warp       WarpConfig       `json:"warp"`
	Output     OutputConfig     `json:"output"`
	Transcribe TranscribeConfig `json:"transcribe"`
}

// ServerConfig holds configuration for the HTTP surface
type ServerConfig struct {
	Port              int `json:"port"`
	RequestTimeoutSec int `json:"request_timeout_sec"`
	MaxBodyBytes      int `json:"max_body_bytes"`
}

// WarpConfig holds configuration for the resampling pass
type WarpConfig struct {
	Workers      int `json:"workers"`
	MaxOutputDim int `json:"max_output_dim"`
}

// OutputConfig holds configuration for response encoding
type OutputConfig struct {
	JPEGQuality int `json:"jpeg_quality"`
}

// TranscribeConfig holds configuration for the optional vision-language
// transcription backend
type TranscribeConfig struct {
	Backend string `json:"backend"`
	URL     string `json:"url"`
	Model   string `json:"model"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8090,
			RequestTimeoutSec: 30,
			MaxBodyBytes:      50 << 20,
		},
		Warp: WarpConfig{
			Workers:      0, // GOMAXPROCS
			MaxOutputDim: 8192,
		},
		Output: OutputConfig{
			JPEGQuality: 85,
		},
		Transcribe: TranscribeConfig{
			Backend: "ollama",
			URL:     "http://localhost:11434",
			Model:   "openbmb/minicpm-v4.5",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Server.RequestTimeoutSec < 1 {
		return fmt.Errorf("server.request_timeout_sec must be positive")
	}

	if c.Warp.Workers < 0 {
		return fmt.Errorf("warp.workers must not be negative")
	}

	if c.Warp.MaxOutputDim < 1 {
		return fmt.Errorf("warp.max_output_dim must be positive")
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100")
	}

	if c.Transcribe.Backend != "" && c.Transcribe.Backend != "ollama" && c.Transcribe.Backend != "llamacpp" {
		return fmt.Errorf("transcribe.backend must be ollama or llamacpp")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "rectify", "config.json")
}
