package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/logger"
	"github.com/san-kum/pixeldust/internal/sampler"
	"github.com/san-kum/pixeldust/internal/tracker"
)

const (
	DefaultAccent     = "#ecf0ff"
	DefaultBackground = "#00000000"
	DefaultPointSize  = 3.0
	DefaultWinWidth   = 960
	DefaultWinHeight  = 480
	DefaultTitle      = "pixeldust"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Asset    string        `yaml:"asset"`
	Disabled bool          `yaml:"disabled"`
	Sampler  SamplerConfig `yaml:"sampler"`
	Physics  PhysicsConfig `yaml:"physics"`
	Tracker  TrackerConfig `yaml:"tracker"`
	Render   RenderConfig  `yaml:"render"`
	Window   WindowConfig  `yaml:"window"`
	Log      logger.Config `yaml:"log"`
}

type SamplerConfig struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	Inset          float64 `yaml:"inset"`
	AlphaThreshold int     `yaml:"alpha_threshold"`
	Accent         string  `yaml:"accent"`
	Filter         string  `yaml:"filter"`
}

type PhysicsConfig struct {
	ForceRadius        float64 `yaml:"force_radius"`
	ForceStrength      float64 `yaml:"force_strength"`
	MinDistance        float64 `yaml:"min_distance"`
	MaxDisplacement    float64 `yaml:"max_displacement"`
	Damping            float64 `yaml:"damping"`
	ReturnForce        float64 `yaml:"return_force"`
	OverflowDamping    float64 `yaml:"overflow_damping"`
	MinForceMultiplier float64 `yaml:"min_force_multiplier"`
	SoftBand           float64 `yaml:"soft_band"`
	ClampBlend         float64 `yaml:"clamp_blend"`
	SettleEpsilon      float64 `yaml:"settle_epsilon"`
	MaxFrameStep       float64 `yaml:"max_frame_step"`
}

type TrackerConfig struct {
	Window int `yaml:"window"`
}

type RenderConfig struct {
	PointSize  float64 `yaml:"point_size"`
	Background string  `yaml:"background"`
}

type WindowConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Title       string `yaml:"title"`
	Transparent bool   `yaml:"transparent"`
	Passthrough bool   `yaml:"passthrough"`
	VSync       bool   `yaml:"vsync"`
}

func DefaultConfig() *Config {
	p := field.DefaultParams()
	return &Config{
		Sampler: SamplerConfig{
			Width:          sampler.DefaultWidth,
			Height:         sampler.DefaultHeight,
			Inset:          sampler.DefaultInset,
			AlphaThreshold: sampler.DefaultAlphaThreshold,
			Accent:         DefaultAccent,
			Filter:         "bilinear",
		},
		Physics: physicsFromParams(p),
		Tracker: TrackerConfig{Window: tracker.DefaultWindow},
		Render: RenderConfig{
			PointSize:  DefaultPointSize,
			Background: DefaultBackground,
		},
		Window: WindowConfig{
			Width:  DefaultWinWidth,
			Height: DefaultWinHeight,
			Title:  DefaultTitle,
			VSync:  true,
		},
		Log: logger.Config{Level: "info"},
	}
}

// Load reads a yaml file over the defaults, so a file only needs the keys
// it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Sampler.Width <= 0 || c.Sampler.Height <= 0 {
		return fmt.Errorf("%w: sampler size %dx%d", ErrInvalidConfig, c.Sampler.Width, c.Sampler.Height)
	}
	if c.Sampler.Inset <= 0 || c.Sampler.Inset > 1 {
		return fmt.Errorf("%w: sampler inset %f outside (0, 1]", ErrInvalidConfig, c.Sampler.Inset)
	}
	if c.Sampler.AlphaThreshold < 0 || c.Sampler.AlphaThreshold > 254 {
		return fmt.Errorf("%w: alpha threshold %d outside [0, 254]", ErrInvalidConfig, c.Sampler.AlphaThreshold)
	}
	if _, err := ParseColor(c.Sampler.Accent); err != nil {
		return err
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		return err
	}
	if c.Tracker.Window <= 0 {
		return fmt.Errorf("%w: tracker window must be positive, got %d", ErrInvalidConfig, c.Tracker.Window)
	}
	if c.Render.PointSize <= 0 {
		return fmt.Errorf("%w: point size must be positive, got %f", ErrInvalidConfig, c.Render.PointSize)
	}
	if err := c.FieldParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) SamplerOptions() sampler.Options {
	accent, err := ParseColor(c.Sampler.Accent)
	if err != nil {
		accent = sampler.DefaultAccent
	}
	return sampler.Options{
		Width:          c.Sampler.Width,
		Height:         c.Sampler.Height,
		Inset:          c.Sampler.Inset,
		AlphaThreshold: uint8(c.Sampler.AlphaThreshold),
		Accent:         accent,
		Filter:         c.Sampler.Filter,
	}
}

func (c *Config) FieldParams() field.Params {
	p := c.Physics
	return field.Params{
		ForceRadius:        p.ForceRadius,
		ForceStrength:      p.ForceStrength,
		MinDistance:        p.MinDistance,
		MaxDisplacement:    p.MaxDisplacement,
		Damping:            p.Damping,
		ReturnForce:        p.ReturnForce,
		OverflowDamping:    p.OverflowDamping,
		MinForceMultiplier: p.MinForceMultiplier,
		SoftBand:           p.SoftBand,
		ClampBlend:         p.ClampBlend,
		SettleEpsilon:      p.SettleEpsilon,
		MaxFrameStep:       p.MaxFrameStep,
	}
}

// BackgroundRGBA returns the clear color as normalized components.
func (c *Config) BackgroundRGBA() [4]float32 {
	bg, err := ParseColor(c.Render.Background)
	if err != nil {
		return [4]float32{}
	}
	return [4]float32{
		float32(bg.R) / 255,
		float32(bg.G) / 255,
		float32(bg.B) / 255,
		float32(bg.A) / 255,
	}
}

func physicsFromParams(p field.Params) PhysicsConfig {
	return PhysicsConfig{
		ForceRadius:        p.ForceRadius,
		ForceStrength:      p.ForceStrength,
		MinDistance:        p.MinDistance,
		MaxDisplacement:    p.MaxDisplacement,
		Damping:            p.Damping,
		ReturnForce:        p.ReturnForce,
		OverflowDamping:    p.OverflowDamping,
		MinForceMultiplier: p.MinForceMultiplier,
		SoftBand:           p.SoftBand,
		ClampBlend:         p.ClampBlend,
		SettleEpsilon:      p.SettleEpsilon,
		MaxFrameStep:       p.MaxFrameStep,
	}
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: color %q", ErrInvalidConfig, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q", ErrInvalidConfig, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Set assigns one physics constant by its yaml name.
func (p *PhysicsConfig) Set(name string, v float64) error {
	switch name {
	case "force_radius":
		p.ForceRadius = v
	case "force_strength":
		p.ForceStrength = v
	case "min_distance":
		p.MinDistance = v
	case "max_displacement":
		p.MaxDisplacement = v
	case "damping":
		p.Damping = v
	case "return_force":
		p.ReturnForce = v
	case "overflow_damping":
		p.OverflowDamping = v
	case "min_force_multiplier":
		p.MinForceMultiplier = v
	case "soft_band":
		p.SoftBand = v
	case "clamp_blend":
		p.ClampBlend = v
	case "settle_epsilon":
		p.SettleEpsilon = v
	case "max_frame_step":
		p.MaxFrameStep = v
	default:
		return fmt.Errorf("%w: unknown physics parameter %q", ErrInvalidConfig, name)
	}
	return nil
}
