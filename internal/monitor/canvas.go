package monitor

import (
	"strings"
)

// Braille cells are 2×4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells addressed in dots: Width*2 by Height*4.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Projection maps buffer pixels onto canvas dots, preserving aspect ratio
// and centering the buffer.
type Projection struct {
	Scale      float64
	OffX, OffY float64
}

func Fit(bufW, bufH int, c *Canvas) Projection {
	if bufW <= 0 || bufH <= 0 {
		return Projection{Scale: 1}
	}
	dotsW, dotsH := float64(c.Width*2), float64(c.Height*4)
	scale := min(dotsW/float64(bufW), dotsH/float64(bufH))
	return Projection{
		Scale: scale,
		OffX:  (dotsW - float64(bufW)*scale) / 2,
		OffY:  (dotsH - float64(bufH)*scale) / 2,
	}
}

func (p Projection) ToDots(x, y float64) (int, int) {
	return int(p.OffX + x*p.Scale), int(p.OffY + y*p.Scale)
}

func (p Projection) FromDots(dx, dy float64) (float64, float64) {
	return (dx - p.OffX) / p.Scale, (dy - p.OffY) / p.Scale
}

// Plot sets one dot per particle from a flat x, y position buffer.
func (c *Canvas) Plot(positions []float32, p Projection) {
	for i := 0; i+1 < len(positions); i += 2 {
		c.Set(p.ToDots(float64(positions[i]), float64(positions[i+1])))
	}
}
