// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// Solace client.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation. The credential can be hot-reloaded while the
// client runs; see Watcher.
//
// Configuration file location (in order of precedence):
//   - SOLACE_CONFIG environment variable
//   - ~/.solace/config.toml
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete Solace client configuration.
type Config struct {
	Version string `toml:"version"`

	// Server connection
	Server ServerConfig `toml:"server"`

	// Voice channel settings
	Voice VoiceConfig `toml:"voice"`

	// Upload settings
	Upload UploadConfig `toml:"upload"`

	// UI settings
	UI UIConfig `toml:"ui"`
}

// ServerConfig contains the backend connection settings.
type ServerConfig struct {
	// URL is the base URL of the Solace server
	URL string `toml:"url"`
	// Token is the bearer credential presented on every request.
	// Issued out of band; this client never creates or refreshes it.
	Token string `toml:"token"`
}

// VoiceConfig contains voice channel settings.
type VoiceConfig struct {
	// Enabled exposes the voice toggle in the UI
	Enabled bool `toml:"enabled"`
}

// UploadConfig contains attachment upload settings.
type UploadConfig struct {
	// MaxFileSizeMB caps the size of a selected attachment (0 = no cap)
	MaxFileSizeMB int `toml:"max_file_size_mb"`
}

// UIConfig contains display settings.
type UIConfig struct {
	// Theme is the color theme name
	Theme string `toml:"theme"`
	// RenderMarkdown enables markdown rendering of assistant messages
	RenderMarkdown bool `toml:"render_markdown"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			URL: "http://localhost:8000",
		},
		Voice: VoiceConfig{
			Enabled: true,
		},
		Upload: UploadConfig{
			MaxFileSizeMB: 25,
		},
		UI: UIConfig{
			Theme:          "default",
			RenderMarkdown: true,
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	if p := os.Getenv("SOLACE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".solace", "config.toml")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default location, applies
// environment overrides, and validates. A missing file is not an error;
// defaults are used.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SOLACE_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("SOLACE_TOKEN"); v != "" {
		c.Server.Token = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for coherence.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url must be set")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https, got %q", u.Scheme)
	}
	if c.Upload.MaxFileSizeMB < 0 {
		return errors.New("upload.max_file_size_mb must not be negative")
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the given path, creating the parent
// directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
