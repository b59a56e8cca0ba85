// Package config loads generator defaults from a TOML file, a .env file
// and CHOROPLETH_* environment variables. Later sources win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Duration decodes TOML strings such as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Config struct {
	Output   string      `toml:"output"`
	LogLevel string      `toml:"log_level"`
	Map      MapConfig   `toml:"map"`
	Layer    LayerConfig `toml:"layer"`
	Fetch    FetchConfig `toml:"fetch"`
}

// MapConfig describes the page around the layer.
type MapConfig struct {
	Title       string     `toml:"title"`
	Var         string     `toml:"var"`
	Tiles       string     `toml:"tiles"`
	Attribution string     `toml:"attribution"`
	Center      [2]float64 `toml:"center"`
	Zoom        int        `toml:"zoom"`
}

// LayerConfig holds layer defaults; unset booleans keep the layer's own
// defaults.
type LayerConfig struct {
	Name         string   `toml:"name"`
	Overlay      *bool    `toml:"overlay"`
	Control      *bool    `toml:"control"`
	Show         *bool    `toml:"show"`
	ZoomOnClick  bool     `toml:"zoom_on_click"`
	SmoothFactor *float64 `toml:"smooth_factor"`
}

type FetchConfig struct {
	Timeout Duration `toml:"timeout"`
	Retries uint64   `toml:"retries"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output:   "map.html",
		LogLevel: "info",
		Map: MapConfig{
			Title:       "Time Slider Choropleth",
			Var:         "map",
			Tiles:       "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "&copy; OpenStreetMap contributors",
			Center:      [2]float64{39.8283, -98.5795},
			Zoom:        4,
		},
		Fetch: FetchConfig{
			Timeout: Duration{15 * time.Second},
			Retries: 3,
		},
	}
}

// LoadDotEnv loads the given .env files into the process environment,
// ignoring files that do not exist.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CHOROPLETH_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("CHOROPLETH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CHOROPLETH_TILES"); v != "" {
		c.Map.Tiles = v
	}
	if v := os.Getenv("CHOROPLETH_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHOROPLETH_FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = Duration{d}
	}
	if v := os.Getenv("CHOROPLETH_FETCH_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHOROPLETH_FETCH_RETRIES: %w", err)
		}
		c.Fetch.Retries = n
	}
	return nil
}
