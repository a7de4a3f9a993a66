// Package export writes field snapshots and displacement traces as SVG.
package export

import (
	"fmt"
	"strings"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`

// FieldToSVG draws one circle per particle at its current position in a
// width x height buffer. colors holds four components per particle in 0..1.
func FieldToSVG(positions, colors []float32, width, height int, radius float64, background string) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if background == "" {
		background = "#0a0a0a"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height, background))
	sb.WriteString("<g>\n")

	n := len(positions) / 2
	if len(colors) < n*4 {
		n = len(colors) / 4
	}
	for i := 0; i < n; i++ {
		c := colors[i*4 : i*4+4]
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="rgb(%d,%d,%d)" fill-opacity="%.2f"/>
`, positions[i*2], positions[i*2+1], radius, channel(c[0]), channel(c[1]), channel(c[2]), c[3]))
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TraceToSVG plots a series left to right, scaled to its own range, as a
// single path.
func TraceToSVG(series []float64, width, height int, strokeColor string) string {
	if len(series) < 2 || width <= 0 || height <= 0 {
		return ""
	}

	lo, hi := series[0], series[0]
	for _, v := range series {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	// 10% padding top and bottom
	lo -= span * 0.1
	span *= 1.2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height, "#0a0a0a"))
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))

	step := float64(width) / float64(len(series)-1)
	for i, v := range series {
		x := float64(i) * step
		y := float64(height) - (v-lo)/span*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func channel(v float32) int {
	return int(min(max(v, 0), 1)*255 + 0.5)
}
