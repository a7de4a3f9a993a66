package engine_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pixeldust/internal/config"
	"github.com/san-kum/pixeldust/internal/engine"
	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/render"
	"github.com/san-kum/pixeldust/internal/render/rendertest"
	"github.com/san-kum/pixeldust/internal/sampler"
)

func opaque(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	return img
}

// gridLoader samples a fully opaque w×h image at its native size.
func gridLoader(w, h int) engine.Loader {
	return func(ctx context.Context, path string, opts sampler.Options) (*sampler.Result, error) {
		opts.Width, opts.Height, opts.Inset = w, h, 1
		return sampler.Sample(opaque(w, h), opts)
	}
}

type stepCounter struct{ n atomic.Int64 }

func (c *stepCounter) Observe(frame uint64, st field.StepStats) { c.n.Add(1) }

var _ = Describe("Engine", func() {
	var (
		dev *rendertest.Device
		cfg *config.Config
		eng *engine.Engine
	)

	BeforeEach(func() {
		dev = rendertest.NewDevice()
		cfg = config.DefaultConfig()
	})

	AfterEach(func() {
		if eng != nil {
			eng.Dispose()
		}
	})

	start := func(opts ...engine.Option) {
		eng = engine.New(dev, cfg, nil, append([]engine.Option{engine.WithLoader(gridLoader(4, 4))}, opts...)...)
		Expect(eng.Start()).To(Succeed())
		eng.Resize(100, 100, 1)
	}

	load := func(path string) {
		Eventually(eng.Load(path)).Should(BeClosed())
		eng.Frame(1)
	}

	Describe("loading", func() {
		It("builds one particle per opaque pixel and draws them", func() {
			start()
			load("logo.png")

			Expect(eng.Particles()).To(Equal(16))
			Expect(dev.Draws()).To(ContainElement(int32(16)))
			Expect(eng.Stats().Asset).To(Equal("logo.png"))
		})

		It("centers the field in the backing buffer", func() {
			start()
			load("logo.png")

			cx, cy := eng.Store().Center()
			Expect(cx).To(Equal(50.0))
			Expect(cy).To(Equal(50.0))
		})

		It("leaves the field empty when the asset fails", func() {
			eng = engine.New(dev, cfg, nil, engine.WithLoader(func(context.Context, string, sampler.Options) (*sampler.Result, error) {
				return nil, errors.New("decode failed")
			}))
			Expect(eng.Start()).To(Succeed())
			eng.Resize(100, 100, 1)
			load("broken.png")

			Expect(eng.Particles()).To(BeZero())
			Expect(eng.Stats().Inert).To(BeFalse())
			Expect(dev.Draws()).To(BeEmpty())
			Expect(dev.Count("Clear")).To(BeNumerically(">", 0))
		})

		It("loads the configured asset on start", func() {
			cfg.Asset = "configured.png"
			start()
			Eventually(func() uint64 { return eng.Stats().Generation }).Should(Equal(uint64(1)))
			Eventually(func() int {
				eng.Frame(1)
				return eng.Particles()
			}).Should(Equal(16))
			Expect(eng.Stats().Asset).To(Equal("configured.png"))
		})

		It("runs headless without a device", func() {
			eng = engine.New(nil, cfg, nil, engine.WithLoader(gridLoader(3, 2)))
			Expect(eng.Start()).To(Succeed())
			load("logo.png")
			Expect(eng.Particles()).To(Equal(6))
		})
	})

	Describe("superseded loads", func() {
		It("cancels the older load and applies only the newest", func() {
			var slowCancelled atomic.Bool
			eng = engine.New(dev, cfg, nil, engine.WithLoader(func(ctx context.Context, path string, opts sampler.Options) (*sampler.Result, error) {
				if path == "slow.png" {
					<-ctx.Done()
					slowCancelled.Store(true)
					return nil, ctx.Err()
				}
				return gridLoader(2, 2)(ctx, path, opts)
			}))
			Expect(eng.Start()).To(Succeed())

			slow := eng.Load("slow.png")
			fast := eng.Load("fast.png")
			Eventually(slow).Should(BeClosed())
			Eventually(fast).Should(BeClosed())
			eng.Frame(1)

			Expect(slowCancelled.Load()).To(BeTrue())
			Expect(eng.Stats().Asset).To(Equal("fast.png"))
			Expect(eng.Particles()).To(Equal(4))
		})

		It("drops a stale result that finishes after a newer one", func() {
			gate := make(chan struct{})
			eng = engine.New(dev, cfg, nil, engine.WithLoader(func(ctx context.Context, path string, opts sampler.Options) (*sampler.Result, error) {
				if path == "old.png" {
					<-gate
					return gridLoader(8, 8)(context.Background(), path, opts)
				}
				return gridLoader(2, 2)(ctx, path, opts)
			}))
			Expect(eng.Start()).To(Succeed())

			old := eng.Load("old.png")
			load("new.png")
			close(gate)
			Eventually(old).Should(BeClosed())
			eng.Frame(1)

			Expect(eng.Stats().Asset).To(Equal("new.png"))
			Expect(eng.Particles()).To(Equal(4))
		})
	})

	Describe("physics", func() {
		It("displaces a particle under the pointer and lets it decay", func() {
			start()
			load("logo.png")

			const target = 5
			ox, oy := eng.Store().Origin(target)
			eng.PointerMove(ox, oy)
			eng.Frame(1)
			Expect(eng.Store().Displacement(target)).To(BeNumerically(">", 0))

			for i := 0; i < 4; i++ {
				eng.Frame(1)
			}
			eng.PointerLeave()

			eps := eng.Params().SettleEpsilon
			settledAt := -1
			for frame := 0; frame < 60; frame++ {
				eng.Frame(1)
				if eng.Store().Displacement(target) <= eps {
					settledAt = frame
					break
				}
			}
			Expect(settledAt).To(BeNumerically(">=", 0), "displacement did not decay within 60 frames")
		})

		It("scales pointer input by the device pixel ratio", func() {
			start()
			eng.Resize(50, 50, 2)
			load("logo.png")

			const target = 5
			ox, oy := eng.Store().Origin(target)
			eng.PointerMove(ox/2, oy/2)
			eng.Frame(1)
			Expect(eng.Store().Displacement(target)).To(BeNumerically(">", 0))
		})

		It("keeps the soft clamp bound while the pointer sweeps", func() {
			start()
			load("logo.png")

			limit := eng.Params().MaxDisplacement * (1 + eng.Params().Tolerance())
			for i := 0; i < 200; i++ {
				eng.PointerMove(40+float64(i%20), 50)
				eng.Frame(1)
				Expect(eng.Store().MaxDisplacement()).To(BeNumerically("<=", limit+1e-3))
			}
		})

		It("settles after the activity window closes and then stops uploading", func() {
			cfg.Tracker.Window = 3
			counter := &stepCounter{}
			start(engine.WithObserver(counter))
			load("logo.png")

			ox, oy := eng.Store().Origin(5)
			eng.PointerMove(ox, oy)
			for i := 0; i < 120; i++ {
				eng.Frame(1)
			}

			st := eng.Stats()
			Expect(st.Active).To(BeFalse())
			Expect(st.Settled).To(BeTrue())
			Expect(eng.Store().MaxDisplacement()).To(BeZero())
			Expect(counter.n.Load()).To(BeNumerically(">", 3))

			uploads := dev.Count("BufferSubData")
			steps := counter.n.Load()
			for i := 0; i < 10; i++ {
				eng.Frame(1)
			}
			Expect(dev.Count("BufferSubData")).To(Equal(uploads))
			Expect(counter.n.Load()).To(Equal(steps))
		})

		It("does not step a field at rest", func() {
			counter := &stepCounter{}
			start(engine.WithObserver(counter))
			load("logo.png")
			for i := 0; i < 10; i++ {
				eng.Frame(1)
			}
			Expect(counter.n.Load()).To(BeZero())
			Expect(dev.Count("BufferSubData")).To(BeZero())
			Expect(len(dev.Draws())).To(Equal(11))
		})
	})

	Describe("resize", func() {
		It("preserves particle count and colors and recenters origins", func() {
			start()
			load("logo.png")
			colors := append([]float32(nil), eng.Store().Colors()...)
			allocs := dev.Count("BufferData")

			eng.Resize(200, 100, 2)
			eng.Frame(1)

			Expect(eng.Particles()).To(Equal(16))
			Expect(eng.Store().Colors()).To(Equal(colors))
			Expect(dev.Count("BufferData")).To(Equal(allocs))
			cx, cy := eng.Store().Center()
			Expect([]float64{cx, cy}).To(Equal([]float64{200, 100}))
			Expect(eng.Stats().Width).To(Equal(400))
			Expect(eng.Stats().Height).To(Equal(200))

			ox, oy := eng.Store().Origin(0)
			Expect([]float64{ox, oy}).To(Equal([]float64{198, 98}))
		})
	})

	Describe("dispose", func() {
		It("releases every GPU object and makes no calls afterwards", func() {
			start()
			load("logo.png")

			eng.Dispose()
			Expect(eng.Disposed()).To(BeTrue())
			Expect(dev.Live()).To(BeZero())

			dev.Reset()
			for i := 0; i < 5; i++ {
				eng.PointerMove(50, 50)
				eng.Frame(1)
			}
			eng.Dispose()
			Expect(dev.Calls()).To(BeEmpty())
			Expect(eng.Particles()).To(BeZero())
			Expect(eng.Start()).To(MatchError(engine.ErrDisposed))
			Eventually(eng.Load("again.png")).Should(BeClosed())
		})

		It("cancels a load in flight", func() {
			var cancelled atomic.Bool
			eng = engine.New(dev, cfg, nil, engine.WithLoader(func(ctx context.Context, path string, opts sampler.Options) (*sampler.Result, error) {
				<-ctx.Done()
				cancelled.Store(true)
				return nil, ctx.Err()
			}))
			Expect(eng.Start()).To(Succeed())
			done := eng.Load("slow.png")
			eng.Dispose()
			Eventually(done).Should(BeClosed())
			Expect(cancelled.Load()).To(BeTrue())
		})
	})

	Describe("degraded modes", func() {
		It("stays inert and touches no GPU state when disabled", func() {
			cfg.Disabled = true
			start()
			Eventually(eng.Load("logo.png")).Should(BeClosed())
			eng.PointerMove(10, 10)
			eng.Frame(1)
			eng.Dispose()

			Expect(dev.Calls()).To(BeEmpty())
			Expect(eng.Particles()).To(BeZero())
		})

		It("goes inert when the shaders fail to compile", func() {
			dev.CompileErr, dev.FailCompile = true, render.FragmentStage
			eng = engine.New(dev, cfg, nil, engine.WithLoader(gridLoader(4, 4)))

			err := eng.Start()
			Expect(err).To(MatchError(render.ErrCompile))
			Expect(eng.Stats().Inert).To(BeTrue())
			Expect(dev.Live()).To(BeZero())

			Eventually(eng.Load("logo.png")).Should(BeClosed())
			eng.Frame(1)
			Expect(dev.Draws()).To(BeEmpty())
		})

		It("skips frames while the context is lost", func() {
			start()
			load("logo.png")
			draws := len(dev.Draws())

			dev.SetLost(true)
			eng.PointerMove(50, 50)
			eng.Frame(1)
			Expect(dev.Draws()).To(HaveLen(draws))

			dev.SetLost(false)
			eng.Frame(1)
			Expect(dev.Draws()).To(HaveLen(draws + 1))
		})

		It("rejects unstable physics at runtime and keeps the old constants", func() {
			start()
			bad := eng.Params()
			bad.Damping = 1.5
			Expect(eng.SetParams(bad)).To(MatchError(field.ErrInvalidParams))
			Expect(eng.Params()).To(Equal(field.DefaultParams()))

			good := eng.Params()
			good.ForceRadius = 30
			Expect(eng.SetParams(good)).To(Succeed())
			Expect(eng.Params().ForceRadius).To(Equal(30.0))
		})

		It("puts a displaced field back at rest on reset", func() {
			start()
			load("logo.png")
			ox, oy := eng.Store().Origin(5)
			eng.PointerMove(ox, oy)
			eng.Frame(1)
			Expect(eng.Store().MaxDisplacement()).To(BeNumerically(">", 0))

			eng.ResetField()
			Expect(eng.Store().MaxDisplacement()).To(BeZero())
			Expect(eng.Stats().Active).To(BeFalse())
			Expect(eng.Stats().Settled).To(BeTrue())
		})

		It("falls back to default physics when the config is unstable", func() {
			cfg.Physics.ReturnForce = 2
			eng = engine.New(nil, cfg, nil)
			Expect(eng.Params()).To(Equal(field.DefaultParams()))
		})
	})
})
