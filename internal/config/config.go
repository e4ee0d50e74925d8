package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lazypower/graphwalk/internal/explorer"
	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/interact"
	"github.com/lazypower/graphwalk/internal/layout"
	"github.com/lazypower/graphwalk/internal/render"
)

// Config holds all graphwalk configuration.
type Config struct {
	Server   ServerConfig    `toml:"server"`
	Database DatabaseConfig  `toml:"database"`
	Layout   layout.Config   `toml:"layout"`
	View     interact.Config `toml:"view"`
	Render   render.Config   `toml:"render"`
	Explorer ExplorerConfig  `toml:"explorer"`
	Fetch    FetchConfig     `toml:"fetch"`
	Log      LogConfig       `toml:"log"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ExplorerConfig struct {
	SearchLimit     int `toml:"search_limit"`
	FrameIntervalMS int `toml:"frame_interval_ms"`
}

type FetchConfig struct {
	URL            string  `toml:"url"` // remote server for --remote commands
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Rate           float64 `toml:"rate"` // requests per second
	Burst          int     `toml:"burst"`
}

type LogConfig struct {
	Level       string `toml:"level"` // "debug", "info", "warn", "error"
	Development bool   `toml:"development"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37780,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Layout: layout.DefaultConfig(),
		View:   interact.DefaultConfig(),
		Render: render.DefaultConfig(),
		Explorer: ExplorerConfig{
			SearchLimit:     explorer.DefaultSearchLimit,
			FrameIntervalMS: int(explorer.DefaultFrameInterval / time.Millisecond),
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 5,
			Rate:           20,
			Burst:          5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns $GRAPHWALK_CONFIG, or ~/.graphwalk/config.toml.
func DefaultPath() string {
	if p := os.Getenv("GRAPHWALK_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".graphwalk", "config.toml")
}

// Load reads the config at path over the defaults. A missing file yields the
// defaults; a malformed one is an error. GRAPHWALK_DB and GRAPHWALK_URL
// override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("GRAPHWALK_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GRAPHWALK_URL"); v != "" {
		cfg.Fetch.URL = v
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// FrameInterval returns the explorer tick period.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Explorer.FrameIntervalMS) * time.Millisecond
}

// ClientOptions converts the fetch section for fetch.NewHTTPClient.
func (c *Config) ClientOptions() fetch.ClientOptions {
	return fetch.ClientOptions{
		BaseURL: c.Fetch.URL,
		Timeout: time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
		Rate:    c.Fetch.Rate,
		Burst:   c.Fetch.Burst,
	}
}

// ExplorerOptions converts the layout, view, render and explorer sections
// for explorer.NewSession.
func (c *Config) ExplorerOptions() explorer.Options {
	return explorer.Options{
		Layout:      c.Layout,
		View:        c.View,
		Render:      c.Render,
		SearchLimit: c.Explorer.SearchLimit,
	}
}
