package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/san-kum/pixeldust/internal/config"
	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/logger"
	"github.com/san-kum/pixeldust/internal/render"
	"github.com/san-kum/pixeldust/internal/sampler"
	"github.com/san-kum/pixeldust/internal/tracker"
)

var ErrDisposed = errors.New("engine: disposed")

type Stats struct {
	Particles  int
	Frames     uint64
	Steps      uint64
	Generation uint64
	Remaining  int
	Width      int
	Height     int
	Asset      string
	Active     bool
	Settled    bool
	Loading    bool
	Inert      bool
	Last       field.StepStats
}

type loaded struct {
	gen  uint64
	path string
	res  *sampler.Result
	err  error
}

type viewport struct {
	width, height int
	dpr           float64
}

// Engine is the single owner of a particle field and its GPU resources.
// Load, Resize, PointerMove and PointerLeave are safe from any goroutine.
// Start, Frame, Dispose and the accessors belong to the frame thread.
type Engine struct {
	dev       render.Device
	cfg       *config.Config
	params    field.Params
	opts      sampler.Options
	log       *zap.Logger
	load      Loader
	observers []Observer
	tracker   *tracker.Tracker

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	cancelLoad context.CancelFunc
	gen        atomic.Uint64
	pending    atomic.Pointer[loaded]
	loading    atomic.Int32

	nextSize atomic.Pointer[viewport]
	dpr      atomic.Uint64

	disposed atomic.Bool
	inert    atomic.Bool

	pipeline *render.Pipeline
	store    *field.Store
	started  bool
	settled  bool
	bufW     int
	bufH     int
	asset    string
	frames   uint64
	steps    uint64
	last     field.StepStats
}

// New builds an engine for dev. A nil dev runs headless; a nil cfg uses the
// defaults. Invalid physics fall back to field.DefaultParams.
func New(dev render.Device, cfg *config.Config, log *zap.Logger, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log = logger.OrNop(log).Named("engine")

	params := cfg.FieldParams()
	if err := params.Validate(); err != nil {
		log.Warn("invalid physics, using defaults", zap.Error(err))
		params = field.DefaultParams()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		dev:     dev,
		cfg:     cfg,
		params:  params,
		opts:    cfg.SamplerOptions(),
		log:     log,
		load:    sampler.Load,
		tracker: tracker.New(cfg.Tracker.Window),
		ctx:     ctx,
		cancel:  cancel,
		settled: true,
	}
	e.dpr.Store(math.Float64bits(1))
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start prepares the render pipeline and kicks off the configured asset, if
// any. A disabled config or a pipeline failure leaves the engine inert: it
// keeps accepting calls but never draws.
func (e *Engine) Start() error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	if e.started {
		return nil
	}
	e.started = true

	if e.cfg.Disabled {
		e.inert.Store(true)
		e.log.Info("effect disabled, engine stays inert")
		return nil
	}

	if e.dev != nil {
		e.pipeline = render.NewPipeline(e.dev, render.Options{
			PointSize:  float32(e.cfg.Render.PointSize),
			Background: e.cfg.BackgroundRGBA(),
		})
		if err := e.pipeline.Init(); err != nil {
			e.inert.Store(true)
			e.log.Error("render pipeline init failed", zap.Error(err))
			return fmt.Errorf("engine: start: %w", err)
		}
	}

	if e.cfg.Asset != "" {
		e.Load(e.cfg.Asset)
	}
	return nil
}

// Load samples path in the background and supersedes any load still in
// flight. The returned channel closes when this load has either been handed
// to the frame thread or dropped.
func (e *Engine) Load(path string) <-chan struct{} {
	done := make(chan struct{})
	if e.disposed.Load() || e.inert.Load() || e.cfg.Disabled {
		close(done)
		return done
	}

	e.mu.Lock()
	if e.cancelLoad != nil {
		e.cancelLoad()
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelLoad = cancel
	gen := e.gen.Add(1)
	e.mu.Unlock()

	e.loading.Add(1)
	e.log.Debug("loading asset", zap.String("path", path), zap.Uint64("generation", gen))

	go func() {
		defer close(done)
		defer e.loading.Add(-1)
		defer cancel()

		res, err := e.load(ctx, path, e.opts)
		if ctx.Err() != nil || gen != e.gen.Load() {
			e.log.Debug("load superseded", zap.String("path", path), zap.Uint64("generation", gen))
			return
		}
		e.offer(&loaded{gen: gen, path: path, res: res, err: err})
	}()
	return done
}

// offer publishes r unless a newer result already sits in the slot.
func (e *Engine) offer(r *loaded) {
	for {
		cur := e.pending.Load()
		if cur != nil && cur.gen > r.gen {
			return
		}
		if e.pending.CompareAndSwap(cur, r) {
			return
		}
	}
}

// Resize records the container size in layout pixels. The backing buffer is
// width×dpr by height×dpr; the frame thread recenters the field on its next
// frame.
func (e *Engine) Resize(width, height int, dpr float64) {
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	e.dpr.Store(math.Float64bits(dpr))
	e.nextSize.Store(&viewport{width: max(width, 0), height: max(height, 0), dpr: dpr})
}

// PointerMove records a pointer position in layout pixels.
func (e *Engine) PointerMove(x, y float64) {
	if e.disposed.Load() {
		return
	}
	dpr := math.Float64frombits(e.dpr.Load())
	e.tracker.Move(x*dpr, y*dpr)
}

func (e *Engine) PointerLeave() {
	e.tracker.Leave()
}

// Frame advances the field by dt reference frames (1 = one 60 Hz frame) and
// draws it. It does nothing once the engine is disposed or inert, and skips
// the frame while the context is lost.
func (e *Engine) Frame(dt float64) {
	if e.disposed.Load() || !e.started || e.inert.Load() {
		return
	}
	if e.dev != nil && e.dev.ContextLost() {
		return
	}
	e.frames++

	upload := e.applyResize()
	e.applyLoad()

	if e.store.Len() > 0 && dt > 0 && (e.tracker.Active() || !e.settled) {
		e.step(dt)
		upload = true
	}
	e.tracker.Tick()

	if e.pipeline == nil {
		return
	}
	if upload && e.store.Len() > 0 {
		if err := e.pipeline.UploadPositions(e.store.Positions()); err != nil {
			e.renderFailed(err)
			return
		}
	}
	if err := e.pipeline.Draw(e.store.Len(), e.bufW, e.bufH); err != nil {
		e.renderFailed(err)
	}
}

// step runs the integrator. Once the activity window has closed the pointer
// no longer pushes, and the field keeps stepping until it is back at rest.
func (e *Engine) step(dt float64) {
	in := field.Input{}
	active := e.tracker.Active()
	if active {
		if x, y, ok := e.tracker.Pointer(); ok {
			in = field.Input{X: x, Y: y, HasPointer: true}
		}
	}

	st := e.params.Step(e.store, in, dt)
	e.steps++
	e.last = st
	e.settled = st.Settled(e.params.SettleEpsilon)
	if e.settled && !active {
		e.store.Reset()
		e.log.Debug("field settled", zap.Uint64("frame", e.frames))
	}

	for _, o := range e.observers {
		o.Observe(e.frames, st)
	}
}

func (e *Engine) applyResize() bool {
	vp := e.nextSize.Swap(nil)
	if vp == nil {
		return false
	}
	e.bufW = int(math.Round(float64(vp.width) * vp.dpr))
	e.bufH = int(math.Round(float64(vp.height) * vp.dpr))
	if e.store == nil {
		return false
	}
	e.store.Recenter(float64(e.bufW)/2, float64(e.bufH)/2)
	return e.store.Len() > 0
}

func (e *Engine) applyLoad() {
	r := e.pending.Swap(nil)
	if r == nil {
		return
	}
	if r.gen != e.gen.Load() {
		e.log.Debug("dropping stale load", zap.String("path", r.path), zap.Uint64("generation", r.gen))
		return
	}

	var offsets, colors []float32
	if r.err != nil {
		e.log.Warn("asset load failed, field left empty", zap.String("path", r.path), zap.Error(r.err))
	} else if r.res != nil {
		offsets, colors = r.res.Offsets, r.res.Colors
	}

	store, err := field.NewStore(offsets, colors, float64(e.bufW)/2, float64(e.bufH)/2)
	if err != nil {
		e.log.Warn("sampled buffers rejected, field left empty", zap.String("path", r.path), zap.Error(err))
		store, _ = field.NewStore(nil, nil, float64(e.bufW)/2, float64(e.bufH)/2)
	}
	e.store = store
	e.asset = r.path
	e.settled = true

	if e.pipeline != nil {
		if err := e.pipeline.Allocate(store.Positions(), store.Colors()); err != nil {
			e.renderFailed(err)
			return
		}
	}
	e.log.Info("particle field ready",
		zap.String("path", r.path),
		zap.Int("particles", store.Len()),
		zap.Uint64("generation", r.gen),
	)
}

func (e *Engine) renderFailed(err error) {
	if errors.Is(err, render.ErrContextLost) {
		e.log.Debug("context lost, frame skipped")
		return
	}
	e.log.Error("render failed, engine going inert", zap.Error(err))
	e.inert.Store(true)
}

// Dispose cancels any load in flight and releases every GPU object. It is
// idempotent; Frame is a no-op afterwards.
func (e *Engine) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}
	e.cancel()
	e.mu.Lock()
	e.cancelLoad = nil
	e.mu.Unlock()
	e.pending.Store(nil)

	if e.pipeline != nil {
		e.pipeline.Release()
	}
	e.store = nil
	e.tracker.Reset()
	e.log.Info("engine disposed", zap.Uint64("frames", e.frames))
}

// SetParams swaps the force model constants between frames. The field is
// stepped until it settles under the new constants.
func (e *Engine) SetParams(p field.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.params = p
	if e.store.Len() > 0 {
		e.settled = false
	}
	return nil
}

// ResetField puts every particle back on its origin and closes the activity
// window.
func (e *Engine) ResetField() {
	e.tracker.Reset()
	if e.store != nil {
		e.store.Reset()
	}
	e.settled = true
	e.last = field.StepStats{}
}

func (e *Engine) Disposed() bool { return e.disposed.Load() }

func (e *Engine) Particles() int { return e.store.Len() }

// Store exposes the live field for read-only consumers such as the software
// preview. It is nil before the first load and after Dispose.
func (e *Engine) Store() *field.Store { return e.store }

func (e *Engine) Params() field.Params { return e.params }

func (e *Engine) Stats() Stats {
	return Stats{
		Particles:  e.store.Len(),
		Frames:     e.frames,
		Steps:      e.steps,
		Generation: e.gen.Load(),
		Remaining:  e.tracker.Remaining(),
		Width:      e.bufW,
		Height:     e.bufH,
		Asset:      e.asset,
		Active:     e.tracker.Active(),
		Settled:    e.settled,
		Loading:    e.loading.Load() > 0,
		Inert:      e.inert.Load(),
		Last:       e.last,
	}
}
