package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DefaultAPIURL      = "http://localhost:8080"
	DefaultPreviewAddr = "127.0.0.1:5173"
)

// Config is the user-facing configuration. Values are layered: defaults, then
// config.yaml, then .env, then the process environment, then CLI flags.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	PreviewAddr    string        `yaml:"preview_addr"`
	Checkpoints    bool          `yaml:"checkpoints"`
	MirrorFiles    bool          `yaml:"mirror_files"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Dev            bool          `yaml:"dev"`

	Runtime *RuntimeConfig `yaml:"-"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		PreviewAddr:    DefaultPreviewAddr,
		Checkpoints:    true,
		MirrorFiles:    true,
		RequestTimeout: 2 * time.Minute,
		Runtime:        Runtime,
	}
}

// Load builds the configuration from all sources and validates it
func Load() (*Config, error) {
	cfg := Default()
	cfg.Runtime = DetectRuntime()

	if err := cfg.loadFile(cfg.Runtime.ConfigFile()); err != nil {
		return nil, err
	}

	// .env is optional, so a missing file is fine
	_ = godotenv.Load()

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnv("SITECRAFT_API_URL", getEnv("VITE_API_URL", c.APIURL))
	c.PreviewAddr = getEnv("SITECRAFT_PREVIEW_ADDR", c.PreviewAddr)
	c.Checkpoints = getEnvBool("SITECRAFT_CHECKPOINTS", c.Checkpoints)
	c.MirrorFiles = getEnvBool("SITECRAFT_MIRROR", c.MirrorFiles)
	c.RequestTimeout = time.Duration(getEnvInt("SITECRAFT_TIMEOUT_SECONDS", int(c.RequestTimeout/time.Second))) * time.Second
	c.Dev = getEnvBool("SITECRAFT_DEV", c.Dev)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || c.APIURL == "" {
		return fmt.Errorf("invalid api url %q", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api url must be http or https, got %q", c.APIURL)
	}
	if c.PreviewAddr == "" {
		return errors.New("preview address is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return nil
}

// Save writes the configuration back to config.yaml
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := ensureDir(c.Runtime.StateDir); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(c.Runtime.ConfigFile(), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
