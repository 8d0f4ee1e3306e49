// Package config loads the YAML configuration of the demo server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the server configuration as read from config.yaml.
type Config struct {
	HTTP struct {
		Port           int           `yaml:"port"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		IdleTimeout    time.Duration `yaml:"idle_timeout"`
		MaxUploadBytes int64         `yaml:"max_upload_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level       string `yaml:"level"`
		File        string `yaml:"file"`
		MaxSizeMB   int    `yaml:"max_size_mb"`
		MaxBackups  int    `yaml:"max_backups"`
		MaxAgeDays  int    `yaml:"max_age_days"`
		Compress    bool   `yaml:"compress"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Artifacts struct {
		Root string `yaml:"root"`
	} `yaml:"artifacts"`
	// Apps lists the enabled apps; empty enables all of them.
	Apps    []string `yaml:"apps"`
	History struct {
		Size int `yaml:"size"`
	} `yaml:"history"`
	Images struct {
		// MaxPixels bounds width x height of an upload before it is decoded.
		MaxPixels int `yaml:"max_pixels"`
	} `yaml:"images"`
	Database struct {
		// Path of the SQLite prediction log; empty disables it.
		Path string `yaml:"path"`
	} `yaml:"database"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	c := &Config{}
	c.HTTP.Port = 8080
	c.HTTP.ReadTimeout = 15 * time.Second
	c.HTTP.WriteTimeout = 30 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.MaxUploadBytes = 10 << 20
	c.HTTP.AllowedOrigins = []string{"*"}
	c.Log.Level = "info"
	c.Artifacts.Root = "artifacts"
	c.History.Size = 50
	c.Images.MaxPixels = 25_000_000
	return c
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.UnmarshalStrict(data, c); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports the first setting the server cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("http.max_upload_bytes must be positive")
	}
	if c.Artifacts.Root == "" {
		return errors.New("artifacts.root is required")
	}
	if c.History.Size <= 0 {
		return fmt.Errorf("history.size must be positive")
	}
	if c.Images.MaxPixels <= 0 {
		return fmt.Errorf("images.max_pixels must be positive")
	}
	seen := make(map[string]bool, len(c.Apps))
	for _, app := range c.Apps {
		if seen[app] {
			return fmt.Errorf("app %q listed twice", app)
		}
		seen[app] = true
	}
	return nil
}
