// ABOUTME: press-admin configuration from admin.toml and environment
// ABOUTME: Flags override environment, which overrides the file

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// adminConfig holds where the gateway is and how to authenticate to it.
type adminConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// defaultConfigPath returns $XDG_CONFIG_HOME/press/admin.toml or
// ~/.config/press/admin.toml.
func defaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "press", "admin.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "admin.toml"
	}
	return filepath.Join(home, ".config", "press", "admin.toml")
}

// loadConfig reads path if it exists and applies environment overrides.
// A missing file is not an error.
func loadConfig(path string) (*adminConfig, error) {
	cfg := &adminConfig{}

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if v := os.Getenv("PRESS_ADMIN_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("PRESS_ADMIN_TOKEN"); v != "" {
		cfg.Token = v
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:8080"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return cfg, nil
}

func (c *adminConfig) override(url, token string) {
	if url != "" {
		c.URL = strings.TrimRight(url, "/")
	}
	if token != "" {
		c.Token = token
	}
}
