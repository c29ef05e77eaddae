// Package config loads the engine configuration file.
package config

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/tilecore/engine"
	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

// Config is the top-level configuration document.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// TileSize is the native grid size used for maps built without a TMX
	// document. RenderScale multiplies it for display.
	TileSize    Size    `yaml:"tile_size"`
	RenderScale int     `yaml:"render_scale"`
	WalkRate    float64 `yaml:"walk_rate"`
	RunRate     float64 `yaml:"run_rate"`
	FPS         int     `yaml:"fps"`

	// DebugConditions records partial condition results every frame.
	DebugConditions bool `yaml:"debug_conditions"`

	// Plugins lists Lua files or directories to load.
	Plugins []string `yaml:"plugins"`

	// SurfaceSpeeds maps a surface key to a movement multiplier.
	SurfaceSpeeds map[string]float64 `yaml:"surface_speeds"`

	Player  Player `yaml:"player"`
	RNGSeed int64  `yaml:"rng_seed"`
	SaveDir string `yaml:"save_dir"`
}

// Size is a width and height in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Player places the player at the start of a game.
type Player struct {
	Slug   string `yaml:"slug"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Facing string `yaml:"facing"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads the YAML configuration file at path and returns a validated
// Config with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TileSize.Width == 0 {
		cfg.TileSize.Width = 16
	}
	if cfg.TileSize.Height == 0 {
		cfg.TileSize.Height = 16
	}
	if cfg.RenderScale == 0 {
		cfg.RenderScale = 1
	}
	if cfg.WalkRate == 0 {
		cfg.WalkRate = world.DefaultWalkRate
	}
	if cfg.RunRate == 0 {
		cfg.RunRate = world.DefaultRunRate
	}
	if cfg.FPS == 0 {
		cfg.FPS = engine.DefaultFPS
	}
	if cfg.Player.Slug == "" {
		cfg.Player.Slug = "player"
	}
	if cfg.Player.Facing == "" {
		cfg.Player.Facing = string(types.Down)
	}
	if cfg.RNGSeed == 0 {
		cfg.RNGSeed = 1
	}
	if cfg.SaveDir == "" {
		cfg.SaveDir = "saves"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.TileSize.Width <= 0 || cfg.TileSize.Height <= 0 {
		errs = append(errs, fmt.Errorf("tile_size %dx%d must be positive", cfg.TileSize.Width, cfg.TileSize.Height))
	}
	if cfg.RenderScale < 1 {
		errs = append(errs, fmt.Errorf("render_scale %d must be at least 1", cfg.RenderScale))
	}
	if cfg.WalkRate <= 0 {
		errs = append(errs, fmt.Errorf("walk_rate %.2f must be positive", cfg.WalkRate))
	}
	if cfg.RunRate <= 0 {
		errs = append(errs, fmt.Errorf("run_rate %.2f must be positive", cfg.RunRate))
	}
	if cfg.FPS < 1 || cfg.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps %d is out of range [1, 240]", cfg.FPS))
	}
	for key, speed := range cfg.SurfaceSpeeds {
		if speed <= 0 {
			errs = append(errs, fmt.Errorf("surface_speeds.%s %.2f must be positive", key, speed))
		}
	}
	for i, p := range cfg.Plugins {
		if p == "" {
			errs = append(errs, fmt.Errorf("plugins[%d] is empty", i))
		}
	}
	if _, err := grid.ParseDirection(cfg.Player.Facing); err != nil {
		errs = append(errs, fmt.Errorf("player.facing: %w", err))
	}
	if cfg.Player.X < 0 || cfg.Player.Y < 0 {
		errs = append(errs, fmt.Errorf("player position (%d, %d) must not be negative", cfg.Player.X, cfg.Player.Y))
	}

	return errors.Join(errs...)
}

// World returns the movement settings.
func (c *Config) World() world.Config {
	return world.Config{
		WalkRate:      c.WalkRate,
		RunRate:       c.RunRate,
		SurfaceSpeeds: c.SurfaceSpeeds,
	}
}

// PlayerStart returns where the player appears.
func (c *Config) PlayerStart() engine.PlayerStart {
	facing, _ := grid.ParseDirection(c.Player.Facing)
	return engine.PlayerStart{Slug: c.Player.Slug, X: c.Player.X, Y: c.Player.Y, Facing: facing}
}

// RenderTileSize returns the displayed tile size in pixels.
func (c *Config) RenderTileSize() image.Point {
	return image.Pt(c.TileSize.Width*c.RenderScale, c.TileSize.Height*c.RenderScale)
}
