// Package script replays pointer strokes against a headless engine so a
// tuning can be measured frame by frame without a window.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pixeldust/internal/config"
	"github.com/san-kum/pixeldust/internal/engine"
	"github.com/san-kum/pixeldust/internal/logger"
	"github.com/san-kum/pixeldust/internal/metrics"
)

const maxSettleFrames = 1200

var (
	ErrNoAsset    = errors.New("script: scenario has no asset")
	ErrEmptyField = errors.New("script: asset produced no particles")
	ErrBadStroke  = errors.New("script: invalid stroke")
)

// Scenario is a named sequence of pointer strokes over one asset.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Asset       string             `yaml:"asset"`
	Preset      string             `yaml:"preset"`
	Surface     [2]int             `yaml:"surface"`
	Params      map[string]float64 `yaml:"params"`
	Settle      bool               `yaml:"settle"`
	Strokes     []Stroke           `yaml:"strokes"`
}

// Stroke drives the pointer for a number of frames. Coordinates are layout
// pixels relative to the surface center.
type Stroke struct {
	Action string     `yaml:"action"` // move, sweep, circle, jitter, leave, wait
	From   [2]float64 `yaml:"from"`
	To     [2]float64 `yaml:"to"`
	Radius float64    `yaml:"radius"`
	Frames int        `yaml:"frames"`
	Seed   int64      `yaml:"seed"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("script: parse %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	for i, s := range sc.Strokes {
		switch s.Action {
		case "move", "sweep", "circle", "jitter", "leave", "wait":
		default:
			return fmt.Errorf("%w: stroke %d has unknown action %q", ErrBadStroke, i+1, s.Action)
		}
		if s.Frames <= 0 {
			return fmt.Errorf("%w: stroke %d needs a positive frame count", ErrBadStroke, i+1)
		}
	}
	return nil
}

// Frames is the number of frames the strokes take, not counting settling.
func (sc *Scenario) Frames() int {
	n := 0
	for _, s := range sc.Strokes {
		n += s.Frames
	}
	return n
}

type Result struct {
	Name      string
	Asset     string
	Particles int
	Frames    uint64
	Settled   bool
	Metrics   map[string]float64
	Samples   []metrics.Sample
}

type Runner struct {
	cfg  *config.Config
	log  *zap.Logger
	opts []engine.Option
}

// NewRunner runs scenarios on top of cfg. Engine options are passed through
// to every engine the runner builds.
func NewRunner(cfg *config.Config, log *zap.Logger, opts ...engine.Option) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Runner{cfg: cfg, log: logger.OrNop(log).Named("script"), opts: opts}
}

// Configure returns the config a scenario runs with: its preset, or the
// runner's config, with the scenario's parameter overrides applied.
func (r *Runner) Configure(sc *Scenario) (*config.Config, error) {
	cfg := *r.cfg
	if sc.Preset != "" {
		p := config.GetPreset(sc.Preset)
		if p == nil {
			return nil, fmt.Errorf("script: unknown preset %q", sc.Preset)
		}
		cfg = *p
	}
	for name, v := range sc.Params {
		if err := cfg.Physics.Set(name, v); err != nil {
			return nil, err
		}
	}
	if sc.Asset != "" {
		cfg.Asset = sc.Asset
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	cfg, err := r.Configure(sc)
	if err != nil {
		return nil, err
	}
	if cfg.Asset == "" {
		return nil, ErrNoAsset
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	w, h := sc.Surface[0], sc.Surface[1]
	if w <= 0 || h <= 0 {
		w, h = cfg.Sampler.Width, cfg.Sampler.Height
	}

	capacity := sc.Frames()
	if sc.Settle {
		capacity += maxSettleFrames
	}
	rec := metrics.NewRecorder(cfg.FieldParams(), capacity)

	// The asset is loaded explicitly below so its completion can be awaited.
	asset := cfg.Asset
	cfg.Asset = ""
	opts := append(append([]engine.Option(nil), r.opts...), engine.WithObserver(rec))
	eng := engine.New(nil, cfg, r.log, opts...)
	defer eng.Dispose()
	if err := eng.Start(); err != nil {
		return nil, err
	}
	eng.Resize(w, h, 1)

	select {
	case <-eng.Load(asset):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	eng.Frame(0)
	if eng.Particles() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyField, asset)
	}

	r.log.Info("running scenario",
		zap.String("name", sc.Name),
		zap.String("asset", asset),
		zap.Int("particles", eng.Particles()),
		zap.Int("strokes", len(sc.Strokes)),
	)

	cx, cy := float64(w)/2, float64(h)/2
	for i, s := range sc.Strokes {
		r.log.Debug("stroke", zap.Int("index", i+1), zap.String("action", s.Action), zap.Int("frames", s.Frames))
		rng := rand.New(rand.NewSource(s.Seed))
		for f := 0; f < s.Frames; f++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			switch s.Action {
			case "leave":
				eng.PointerLeave()
			case "wait":
			default:
				x, y := s.pointAt(f, rng)
				eng.PointerMove(cx+x, cy+y)
			}
			eng.Frame(1)
		}
	}

	if sc.Settle {
		eng.PointerLeave()
		for f := 0; f < maxSettleFrames; f++ {
			if st := eng.Stats(); st.Settled && !st.Active {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			eng.Frame(1)
		}
	}

	st := eng.Stats()
	return &Result{
		Name:      sc.Name,
		Asset:     asset,
		Particles: st.Particles,
		Frames:    st.Frames,
		Settled:   st.Settled && !st.Active,
		Metrics:   rec.Values(),
		Samples:   rec.Trace.Samples(),
	}, nil
}

// pointAt returns the pointer offset for frame f of the stroke.
func (s Stroke) pointAt(f int, rng *rand.Rand) (float64, float64) {
	t := 0.0
	if s.Frames > 1 {
		t = float64(f) / float64(s.Frames-1)
	}
	switch s.Action {
	case "sweep":
		return s.From[0] + (s.To[0]-s.From[0])*t, s.From[1] + (s.To[1]-s.From[1])*t
	case "circle":
		sin, cos := math.Sincos(2 * math.Pi * float64(f) / float64(s.Frames))
		return s.From[0] + s.Radius*cos, s.From[1] + s.Radius*sin
	case "jitter":
		a := rng.Float64() * 2 * math.Pi
		d := rng.Float64() * s.Radius
		return s.From[0] + d*math.Cos(a), s.From[1] + d*math.Sin(a)
	default:
		return s.From[0], s.From[1]
	}
}

// Sweep reruns one scenario across evenly spaced values of a physics
// parameter.
type Sweep struct {
	Param string
	Min   float64
	Max   float64
	Steps int
}

type SweepResult struct {
	Value  float64
	Result *Result
}

// Sweep runs the steps concurrently, each on its own headless engine.
// Observers passed to NewRunner must be safe for concurrent use.
func (r *Runner) Sweep(ctx context.Context, sc *Scenario, sw Sweep) ([]SweepResult, error) {
	if sw.Steps < 2 {
		return nil, fmt.Errorf("script: sweep needs at least 2 steps, got %d", sw.Steps)
	}
	step := (sw.Max - sw.Min) / float64(sw.Steps-1)

	results := make([]SweepResult, sw.Steps)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < sw.Steps; i++ {
		v := sw.Min + float64(i)*step

		run := *sc
		run.Params = make(map[string]float64, len(sc.Params)+1)
		for k, pv := range sc.Params {
			run.Params[k] = pv
		}
		run.Params[sw.Param] = v

		i := i
		g.Go(func() error {
			res, err := r.Run(ctx, &run)
			if err != nil {
				return fmt.Errorf("sweep %s=%.4f: %w", sw.Param, v, err)
			}
			results[i] = SweepResult{Value: v, Result: res}
			r.log.Info("sweep step", zap.Int("step", i+1), zap.Int("of", sw.Steps), zap.String("param", sw.Param), zap.Float64("value", v))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
