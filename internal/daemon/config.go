// Package daemon holds the server process configuration, loaded from a TOML
// file with sensible defaults for running locally.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Metrics MetricsConfig `toml:"metrics"`
	Parser  ParserConfig  `toml:"parser"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig configures the SQLite store.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// ParserConfig configures the free-text task parser.
// Backend "regex" needs nothing; "openai" reads the API key from
// OPENAI_API_KEY and falls back to regex when a parse fails.
type ParserConfig struct {
	Backend string `toml:"backend"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// DefaultConfig returns the defaults for a local daemon.
func DefaultConfig() Config {
	return Config{
		API:     APIConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{Dir: defaultDataDir()},
		Metrics: MetricsConfig{Enabled: true},
		Parser:  ParserConfig{Backend: "regex", Model: "gpt-4o-mini"},
	}
}

// Load reads the config file, layering it over the defaults. A missing file
// is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = filepath.Join(defaultDataDir(), "config.toml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func defaultDataDir() string {
	if dir := os.Getenv("COGSCHED_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cogsched"
	}
	return filepath.Join(home, ".cogsched")
}
