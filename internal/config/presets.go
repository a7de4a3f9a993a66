package config

import (
	"sort"
)

// Presets are named tunings of the force model and sampling density.
var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"calm": preset(func(c *Config) {
		c.Physics.ForceStrength = 0.6
		c.Physics.ForceRadius = 60
		c.Physics.MaxDisplacement = 24
		c.Physics.Damping = 0.78
		c.Physics.ReturnForce = 0.18
	}),
	"lively": preset(func(c *Config) {
		c.Physics.ForceStrength = 1.6
		c.Physics.ForceRadius = 110
		c.Physics.MaxDisplacement = 60
		c.Physics.Damping = 0.88
		c.Physics.ReturnForce = 0.1
		c.Tracker.Window = 420
	}),
	"dense": preset(func(c *Config) {
		c.Sampler.Width = 480
		c.Sampler.Height = 240
		c.Render.PointSize = 2
	}),
}

func preset(apply func(*Config)) *Config {
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
