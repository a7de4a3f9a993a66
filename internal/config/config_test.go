package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/sampler"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.FieldParams() != field.DefaultParams() {
		t.Error("default physics should match field.DefaultParams")
	}
	if cfg.Tracker.Window != 300 {
		t.Errorf("expected activity window 300, got %d", cfg.Tracker.Window)
	}
	if cfg.Disabled {
		t.Error("effect should be enabled by default")
	}
}

func TestSamplerOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.SamplerOptions()
	want := sampler.DefaultOptions()

	if opts.Width != want.Width || opts.Height != want.Height {
		t.Errorf("size %dx%d, want %dx%d", opts.Width, opts.Height, want.Width, want.Height)
	}
	if opts.Accent != want.Accent {
		t.Errorf("accent %v, want %v", opts.Accent, want.Accent)
	}
	if opts.AlphaThreshold != want.AlphaThreshold {
		t.Errorf("alpha threshold %d, want %d", opts.AlphaThreshold, want.AlphaThreshold)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ecf0ff", color.NRGBA{236, 240, 255, 255}, false},
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"#00000000", color.NRGBA{}, false},
		{"ff000080", color.NRGBA{255, 0, 0, 128}, false},
		{"#12345", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Sampler.Width = 0 }},
		{"inset above one", func(c *Config) { c.Sampler.Inset = 1.5 }},
		{"alpha threshold", func(c *Config) { c.Sampler.AlphaThreshold = 255 }},
		{"bad accent", func(c *Config) { c.Sampler.Accent = "blue" }},
		{"bad background", func(c *Config) { c.Render.Background = "#12" }},
		{"zero window", func(c *Config) { c.Tracker.Window = 0 }},
		{"zero point size", func(c *Config) { c.Render.PointSize = 0 }},
		{"unstable return force", func(c *Config) { c.Physics.ReturnForce = 0.5 }},
		{"negative radius", func(c *Config) { c.Physics.ForceRadius = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixeldust.yaml")

	cfg := DefaultConfig()
	cfg.Asset = "logo.png"
	cfg.Physics.ForceRadius = 120
	cfg.Window.Transparent = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Asset != "logo.png" || loaded.Physics.ForceRadius != 120 || !loaded.Window.Transparent {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("asset: mark.png\nphysics:\n  force_radius: 50\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Physics.ForceRadius != 50 {
		t.Errorf("force radius %f, want 50", cfg.Physics.ForceRadius)
	}
	if cfg.Physics.Damping != field.DefaultDamping {
		t.Errorf("damping %f, want default %f", cfg.Physics.Damping, field.DefaultDamping)
	}
	if cfg.Sampler.Width != sampler.DefaultWidth {
		t.Errorf("sampler width %d, want default", cfg.Sampler.Width)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("physics: [1, 2"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("tracker:\n  window: -1\n"), 0644)
	if _, err := Load(invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("calm")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Physics.ForceStrength != 0.6 {
		t.Errorf("expected strength 0.6, got %f", cfg.Physics.ForceStrength)
	}

	cfg.Physics.ForceStrength = 9
	if GetPreset("calm").Physics.ForceStrength != 0.6 {
		t.Error("GetPreset should return a copy")
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if len(names) != 4 {
		t.Fatalf("expected 4 presets, got %v", names)
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestPhysicsSet(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Physics.Set("force_radius", 64); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.FieldParams().ForceRadius != 64 {
		t.Errorf("force radius %f, want 64", cfg.FieldParams().ForceRadius)
	}
	if err := cfg.Physics.Set("gravity", 9.81); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown name, got %v", err)
	}
}
