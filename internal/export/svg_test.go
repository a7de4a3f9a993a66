package export

import (
	"strings"
	"testing"
)

func TestFieldToSVG(t *testing.T) {
	positions := []float32{10, 20, 30, 40}
	colors := []float32{1, 0, 0, 1, 0, 1, 0, 0.5}

	svg := FieldToSVG(positions, colors, 100, 50, 1.5, "")
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Fatalf("expected 2 circles, got %d", got)
	}
	if !strings.Contains(svg, `cx="10.0" cy="20.0"`) {
		t.Error("missing first particle position")
	}
	if !strings.Contains(svg, `fill="rgb(0,255,0)" fill-opacity="0.50"`) {
		t.Error("missing second particle color")
	}
	if !strings.Contains(svg, `width="100" height="50"`) {
		t.Error("missing surface size")
	}
}

func TestFieldToSVGMismatchedBuffers(t *testing.T) {
	svg := FieldToSVG([]float32{1, 2, 3, 4}, []float32{1, 1, 1, 1}, 10, 10, 1, "#000")
	if got := strings.Count(svg, "<circle"); got != 1 {
		t.Errorf("expected 1 circle for one color, got %d", got)
	}
	if FieldToSVG(nil, nil, 0, 10, 1, "") != "" {
		t.Error("expected empty output for zero width")
	}
}

func TestTraceToSVG(t *testing.T) {
	svg := TraceToSVG([]float64{0, 5, 10, 5, 0}, 200, 100, "#ecf0ff")
	if !strings.Contains(svg, `stroke="#ecf0ff"`) {
		t.Error("missing stroke color")
	}
	if got := strings.Count(svg, " L"); got != 4 {
		t.Errorf("expected 4 line segments, got %d", got)
	}
	if TraceToSVG([]float64{1}, 200, 100, "#fff") != "" {
		t.Error("expected empty output for a single sample")
	}
}
