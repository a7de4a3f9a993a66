// Package host runs the engine in a glfw window with an OpenGL 4.1 core
// context. All GL work happens on the locked main thread; glfw callbacks only
// forward pointer and size changes to the engine.
package host

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/san-kum/pixeldust/internal/config"
	"github.com/san-kum/pixeldust/internal/engine"
	"github.com/san-kum/pixeldust/internal/logger"
	"github.com/san-kum/pixeldust/internal/render/gldevice"
)

func init() {
	// glfw and GL must stay on the main thread.
	runtime.LockOSThread()
}

// Window owns the glfw window, its GL device and the engine drawing into it.
type Window struct {
	cfg  *config.Config
	log  *zap.Logger
	opts []engine.Option

	win *glfw.Window
	dev *gldevice.Device
	eng *engine.Engine

	drops chan string
}

func New(cfg *config.Config, log *zap.Logger, opts ...engine.Option) *Window {
	return &Window{
		cfg:   cfg,
		log:   logger.OrNop(log).Named("host"),
		opts:  opts,
		drops: make(chan string, 1),
	}
}

// Engine is the running engine, or nil before Run has opened the window.
func (w *Window) Engine() *engine.Engine { return w.eng }

// Run opens the window and drives frames until it is closed. ready, if not
// nil, is called with the engine once it has started.
func (w *Window) Run(ready func(*engine.Engine)) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("host: glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)
	if w.cfg.Window.Transparent {
		glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)
		glfw.WindowHint(glfw.Decorated, glfw.False)
	}
	if w.cfg.Window.Passthrough {
		// glfw 3.3 has no mouse passthrough hint
		w.log.Warn("passthrough is not supported by the GL host, use preview")
	}

	win, err := glfw.CreateWindow(w.cfg.Window.Width, w.cfg.Window.Height, w.cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("host: create window: %w", err)
	}
	defer win.Destroy()
	win.MakeContextCurrent()
	if w.cfg.Window.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	w.win = win

	dev, err := gldevice.New()
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	w.dev = dev
	w.log.Info("gl context ready", zap.String("version", dev.Version()))

	w.eng = engine.New(dev, w.cfg, w.log, w.opts...)
	defer w.close()

	w.installCallbacks()
	w.resize()

	if err := w.eng.Start(); err != nil {
		// an inert engine still leaves a usable (empty) window
		w.log.Error("engine did not start", zap.Error(err))
	}
	if ready != nil {
		ready(w.eng)
	}

	w.loop()
	return nil
}

func (w *Window) installCallbacks() {
	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.eng.PointerMove(x, y)
	})
	w.win.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		if !entered {
			w.eng.PointerLeave()
		}
	})
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		w.resize()
	})
	w.win.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape, glfw.KeyQ:
			win.SetShouldClose(true)
		case glfw.KeyR:
			w.eng.ResetField()
		}
	})
	w.win.SetDropCallback(func(_ *glfw.Window, names []string) {
		if len(names) == 0 {
			return
		}
		select {
		case w.drops <- names[0]:
		default:
		}
	})
}

// resize reports the window size in screen coordinates plus the ratio of
// framebuffer pixels to screen coordinates.
func (w *Window) resize() {
	width, height := w.win.GetSize()
	fbW, _ := w.win.GetFramebufferSize()
	dpr := 1.0
	if width > 0 {
		dpr = float64(fbW) / float64(width)
	}
	w.eng.Resize(width, height, dpr)
}

func (w *Window) loop() {
	last := glfw.GetTime()
	for !w.win.ShouldClose() {
		glfw.PollEvents()

		select {
		case path := <-w.drops:
			w.log.Info("loading dropped asset", zap.String("path", path))
			w.eng.Load(path)
		default:
		}

		now := glfw.GetTime()
		w.eng.Frame(FrameDelta(now - last))
		last = now

		w.win.SwapBuffers()
	}
}

func (w *Window) close() {
	w.eng.Dispose()
	w.dev.MarkLost()
}

// FrameDelta converts elapsed seconds to 60 Hz reference frames.
func FrameDelta(elapsed float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	return elapsed * 60
}
