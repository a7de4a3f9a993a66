// Package sampler turns a raster image into an initial particle set.
//
// The image is fitted into an inset box, drawn centered onto a transparent
// offscreen surface and scanned row by row. Every pixel whose alpha exceeds
// the threshold becomes one particle:
//
//	res, err := sampler.Load(ctx, "logo.png", sampler.DefaultOptions())
//	store := field.NewStore(res.Offsets, res.Colors, cx, cy)
//
// Offsets are relative to the surface center, so callers can place the
// field anywhere and recenter it later without re-sampling.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyPath   = errors.New("sampler: empty asset path")
	ErrInvalidSize = errors.New("sampler: surface size must be positive")
)

const (
	DefaultWidth          = 320
	DefaultHeight         = 160
	DefaultInset          = 0.9
	DefaultAlphaThreshold = 8
)

// DefaultAccent is the single tint every particle is drawn with.
var DefaultAccent = color.NRGBA{R: 236, G: 240, B: 255, A: 255}

type Options struct {
	Width, Height  int
	Inset          float64
	AlphaThreshold uint8
	Accent         color.NRGBA
	Filter         string // nearest, bilinear, catmullrom
}

func DefaultOptions() Options {
	return Options{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		Inset:          DefaultInset,
		AlphaThreshold: DefaultAlphaThreshold,
		Accent:         DefaultAccent,
		Filter:         "bilinear",
	}
}

// Result holds index-aligned particle data: two offset components and
// four color components per particle.
type Result struct {
	Offsets []float32
	Colors  []float32
	Width   int
	Height  int
}

func (r *Result) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Offsets) / 2
}

// Load decodes the image at path and samples it. Cancellation is checked
// before the file is opened and again after decoding.
func Load(ctx context.Context, path string, opts Options) (*Result, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Sample(img, opts)
}

// Sample rasterizes img onto a Width x Height surface and collects every
// pixel above the alpha threshold.
func Sample(img image.Image, opts Options) (*Result, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, ErrInvalidSize
	}
	surface := Rasterize(img, opts)

	w, h := opts.Width, opts.Height
	res := &Result{Width: w, Height: h}

	// Count first so both buffers are allocated exactly once.
	n := 0
	for i := 3; i < len(surface.Pix); i += 4 {
		if surface.Pix[i] > opts.AlphaThreshold {
			n++
		}
	}
	res.Offsets = make([]float32, 0, n*2)
	res.Colors = make([]float32, 0, n*4)

	r := float32(opts.Accent.R) / 255
	g := float32(opts.Accent.G) / 255
	b := float32(opts.Accent.B) / 255
	halfW, halfH := float32(w)/2, float32(h)/2

	for row := 0; row < h; row++ {
		line := surface.Pix[row*surface.Stride : row*surface.Stride+w*4]
		for col := 0; col < w; col++ {
			a := line[col*4+3]
			if a <= opts.AlphaThreshold {
				continue
			}
			res.Offsets = append(res.Offsets, float32(col)-halfW, float32(row)-halfH)
			res.Colors = append(res.Colors, r, g, b, float32(a)/255)
		}
	}
	return res, nil
}

// Rasterize draws img scaled to fit the inset box and centered on a
// transparent surface of the configured size.
func Rasterize(img image.Image, opts Options) *image.NRGBA {
	surface := image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	if img == nil {
		return surface
	}
	sr := img.Bounds()
	if sr.Empty() {
		return surface
	}

	inset := opts.Inset
	if inset <= 0 || inset > 1 {
		inset = 1
	}
	scale := math.Min(
		inset*float64(opts.Width)/float64(sr.Dx()),
		inset*float64(opts.Height)/float64(sr.Dy()),
	)
	dw := max(1, int(math.Round(float64(sr.Dx())*scale)))
	dh := max(1, int(math.Round(float64(sr.Dy())*scale)))
	x0 := (opts.Width - dw) / 2
	y0 := (opts.Height - dh) / 2
	dr := image.Rect(x0, y0, x0+dw, y0+dh)

	if dw == sr.Dx() && dh == sr.Dy() {
		draw.Copy(surface, dr.Min, img, sr, draw.Over, nil)
		return surface
	}
	interpolator(opts.Filter).Scale(surface, dr, img, sr, draw.Over, nil)
	return surface
}

func interpolator(name string) draw.Interpolator {
	switch name {
	case "nearest":
		return draw.NearestNeighbor
	case "catmullrom":
		return draw.CatmullRom
	default:
		return draw.ApproxBiLinear
	}
}
