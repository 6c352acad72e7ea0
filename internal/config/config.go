// Package config loads daemon configuration from YAML with environment
// variable expansion, and watches the file for blocklist changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Provider struct {
		Name        string  `yaml:"name"` // "openai" or "anthropic"
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		TopP        float64 `yaml:"topP"`
		MaxTokens   int     `yaml:"maxTokens"`
	} `yaml:"provider"`
	RateLimit struct {
		Requests int `yaml:"requests"`
		WindowS  int `yaml:"windowSeconds"`
	} `yaml:"rateLimit"`
	Privacy struct {
		// BlockedDomains extend the built-in sensitive-domain list.
		BlockedDomains []string `yaml:"blockedDomains"`
	} `yaml:"privacy"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Browser struct {
		// DevToolsURL enables the local Chrome feed when set, e.g.
		// "http://127.0.0.1:9222".
		DevToolsURL string `yaml:"devtoolsURL"`
	} `yaml:"browser"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Server.Addr = "127.0.0.1:8964"
	c.Provider.Name = "openai"
	c.Provider.Model = "gpt-4o-mini"
	c.Provider.Temperature = 0.7
	c.Provider.TopP = 0.9
	c.Provider.MaxTokens = 300
	c.RateLimit.Requests = 10
	c.RateLimit.WindowS = 60
	c.Database.Path = filepath.Join(dataDir(), "fieldsense.db")
	return c
}

// Window returns the rate-limit window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.RateLimit.WindowS) * time.Second
}

// Load reads path over the defaults. A missing file is not an error: the
// defaults apply.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := parse(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// parse unmarshals YAML bytes with environment variable expansion.
func parse(data []byte, c *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// DefaultPath returns the expected config file location.
func DefaultPath() string {
	return filepath.Join(dataDir(), "config.yaml")
}

// dataDir returns the platform data directory. Set FIELDSENSE_DATA_DIR to
// override.
func dataDir() string {
	if dir := os.Getenv("FIELDSENSE_DATA_DIR"); dir != "" {
		return dir
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	// Linux: lowercase per XDG convention.
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "fieldsense")
	}
	return filepath.Join(configDir, "FieldSense")
}
