// Package preview draws the particle field with raylib instead of the
// custom GL pipeline: each particle is an additive glow sprite. It shares the
// engine, tracker and integrator with the GL host, so it is a quick way to
// judge a tuning on machines without a 4.1 core context.
package preview

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"github.com/san-kum/pixeldust/internal/config"
	"github.com/san-kum/pixeldust/internal/engine"
	"github.com/san-kum/pixeldust/internal/logger"
)

const (
	glowSize     = 32
	glowSpread   = 4.0
	maxTelemetry = 200
)

var (
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGraph   = rl.NewColor(180, 180, 180, 255)
)

type App struct {
	eng *engine.Engine
	cfg *config.Config
	log *zap.Logger

	glow       rl.Texture2D
	background rl.Color
	cursorIn   bool
	showHUD    bool
	telemetry  []float64
}

// Run opens a raylib window and drives eng until it closes. eng must be
// headless; the window owns drawing.
func Run(eng *engine.Engine, cfg *config.Config, log *zap.Logger) error {
	flags := uint32(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	if cfg.Window.VSync {
		flags |= rl.FlagVsyncHint
	}
	if cfg.Window.Transparent {
		flags |= rl.FlagWindowTransparent
	}
	if cfg.Window.Passthrough {
		flags |= rl.FlagWindowMousePassthrough
	}
	rl.SetConfigFlags(flags)
	rl.InitWindow(int32(cfg.Window.Width), int32(cfg.Window.Height), cfg.Window.Title+" (preview)")
	defer rl.CloseWindow()
	if !rl.IsWindowReady() {
		return fmt.Errorf("preview: raylib window failed to open")
	}
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)

	app := NewApp(eng, cfg, log)
	defer app.Close()
	if err := eng.Start(); err != nil {
		return err
	}
	app.RunLoop()
	return nil
}

// NewApp builds the glow texture. A window must be open.
func NewApp(eng *engine.Engine, cfg *config.Config, log *zap.Logger) *App {
	img := rl.GenImageGradientRadial(glowSize, glowSize, 0.0, rl.White, rl.NewColor(0, 0, 0, 0))
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	bg := cfg.BackgroundRGBA()
	return &App{
		eng:        eng,
		cfg:        cfg,
		log:        logger.OrNop(log).Named("preview"),
		glow:       tex,
		background: rl.NewColor(uint8(bg[0]*255), uint8(bg[1]*255), uint8(bg[2]*255), uint8(bg[3]*255)),
		showHUD:    true,
		telemetry:  make([]float64, 0, maxTelemetry),
	}
}

func (a *App) RunLoop() {
	a.eng.Resize(rl.GetScreenWidth(), rl.GetScreenHeight(), 1)
	for !rl.WindowShouldClose() {
		if !a.Update() {
			return
		}
		a.Draw()
	}
}

// Update feeds window events to the engine and steps one frame. It returns
// false when the user asked to quit.
func (a *App) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) || rl.IsKeyPressed(rl.KeyEscape) {
		return false
	}
	if rl.IsKeyPressed(rl.KeyH) {
		a.showHUD = !a.showHUD
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.eng.ResetField()
		a.telemetry = a.telemetry[:0]
	}

	if rl.IsWindowResized() {
		a.eng.Resize(rl.GetScreenWidth(), rl.GetScreenHeight(), 1)
	}

	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		if len(files) > 0 {
			a.log.Info("loading dropped asset", zap.String("path", files[0]))
			a.eng.Load(files[0])
		}
		rl.UnloadDroppedFiles()
	}

	if rl.IsCursorOnScreen() {
		delta := rl.GetMouseDelta()
		if !a.cursorIn || delta.X != 0 || delta.Y != 0 {
			pos := rl.GetMousePosition()
			a.eng.PointerMove(float64(pos.X), float64(pos.Y))
		}
		a.cursorIn = true
	} else if a.cursorIn {
		a.eng.PointerLeave()
		a.cursorIn = false
	}

	a.eng.Frame(float64(rl.GetFrameTime()) * 60)

	if len(a.telemetry) == maxTelemetry {
		a.telemetry = append(a.telemetry[:0], a.telemetry[1:]...)
	}
	a.telemetry = append(a.telemetry, a.eng.Stats().Last.MaxDisplacement)
	return true
}

func (a *App) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(a.background)

	if s := a.eng.Store(); s != nil {
		pos, col := s.Positions(), s.Colors()
		size := float32(a.cfg.Render.PointSize) * glowSpread
		scale := size / glowSize

		rl.BeginBlendMode(rl.BlendAdditive)
		for i := 0; i < s.Len(); i++ {
			tint := rl.NewColor(
				uint8(col[i*4]*255),
				uint8(col[i*4+1]*255),
				uint8(col[i*4+2]*255),
				uint8(col[i*4+3]*255),
			)
			at := rl.NewVector2(pos[i*2]-size/2, pos[i*2+1]-size/2)
			rl.DrawTextureEx(a.glow, at, 0, scale, tint)
		}
		rl.EndBlendMode()
	}

	if a.showHUD {
		a.drawHUD()
	}
}

func (a *App) drawHUD() {
	st := a.eng.Stats()
	state := "AT REST"
	switch {
	case st.Loading:
		state = "LOADING"
	case st.Active || !st.Settled:
		state = "ACTIVE"
	}

	rl.DrawText(fmt.Sprintf("%s  %d particles  %s", st.Asset, st.Particles, state), 10, 10, 18, ColText)
	rl.DrawText(fmt.Sprintf("max %.2f  mean %.3f  window %d  %d fps", st.Last.MaxDisplacement, st.Last.MeanDisplacement, st.Remaining, rl.GetFPS()), 10, 32, 18, ColText)
	rl.DrawText("H:HUD R:Reset Q:Quit  drop an image to load it", 10, int32(rl.GetScreenHeight())-24, 16, ColTextDim)

	// displacement telemetry, scaled to the displacement limit
	if len(a.telemetry) < 2 {
		return
	}
	limit := a.eng.Params().MaxDisplacement * (1 + a.eng.Params().Tolerance())
	const gx, gy, gw, gh = 10, 60, 200, 40
	rl.DrawRectangleLines(gx, gy, gw, gh, ColTextDim)
	step := float32(gw) / float32(maxTelemetry-1)
	for i := 1; i < len(a.telemetry); i++ {
		y0 := gy + gh - float32(a.telemetry[i-1]/limit)*gh
		y1 := gy + gh - float32(a.telemetry[i]/limit)*gh
		rl.DrawLineV(
			rl.NewVector2(gx+float32(i-1)*step, y0),
			rl.NewVector2(gx+float32(i)*step, y1),
			ColGraph,
		)
	}
}

// Close releases the glow texture and disposes the engine.
func (a *App) Close() {
	rl.UnloadTexture(a.glow)
	a.eng.Dispose()
}
