package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/pixeldust/internal/field"
)

func TestPeakDisplacement(t *testing.T) {
	m := NewPeakDisplacement()
	for _, d := range []float64{1, 7, 3} {
		m.Observe(0, field.StepStats{MaxDisplacement: d})
	}
	if m.Value() != 7 {
		t.Errorf("expected peak 7, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestEnergy(t *testing.T) {
	m := NewEnergy()
	if m.Value() != 0 {
		t.Error("expected zero energy with no samples")
	}
	m.Observe(0, field.StepStats{Kinetic: 2})
	m.Observe(1, field.StepStats{Kinetic: 4})
	if math.Abs(m.Value()-3) > 1e-12 {
		t.Errorf("expected mean energy 3, got %f", m.Value())
	}
}

func TestClampRatio(t *testing.T) {
	m := NewClampRatio(40)
	m.Observe(0, field.StepStats{MaxDisplacement: 20})
	m.Observe(1, field.StepStats{MaxDisplacement: 41})
	if math.Abs(m.Value()-41.0/40) > 1e-12 {
		t.Errorf("expected ratio 1.025, got %f", m.Value())
	}

	zero := NewClampRatio(0)
	zero.Observe(0, field.StepStats{MaxDisplacement: 5})
	if zero.Value() != 0 {
		t.Error("zero limit should not divide")
	}
}

func TestSettleTime(t *testing.T) {
	m := NewSettleTime(0.05)
	if m.Value() != -1 {
		t.Fatalf("expected -1 before any motion, got %f", m.Value())
	}

	m.Observe(10, field.StepStats{MaxDisplacement: 5, MaxSpeed: 2})
	m.Observe(11, field.StepStats{MaxDisplacement: 3, MaxSpeed: 1})
	if m.Value() != -1 {
		t.Error("expected -1 while moving")
	}
	m.Observe(42, field.StepStats{MaxDisplacement: 0.01, MaxSpeed: 0.01})
	if m.Value() != 32 {
		t.Errorf("expected 32 frames, got %f", m.Value())
	}
}

func TestTraceRing(t *testing.T) {
	tr := NewTrace(3)
	for i := uint64(1); i <= 5; i++ {
		tr.Observe(i, field.StepStats{MaxDisplacement: float64(i)})
	}

	if tr.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", tr.Len())
	}
	samples := tr.Samples()
	for i, want := range []uint64{3, 4, 5} {
		if samples[i].Frame != want {
			t.Errorf("sample %d: frame %d, want %d", i, samples[i].Frame, want)
		}
	}

	series := tr.Series(func(s Sample) float64 { return s.MaxDisplacement })
	if series[0] != 3 || series[2] != 5 {
		t.Errorf("unexpected series %v", series)
	}

	tr.Reset()
	if tr.Len() != 0 || len(tr.Samples()) != 0 {
		t.Error("expected empty trace after reset")
	}
}

func TestTracePartial(t *testing.T) {
	tr := NewTrace(0)
	tr.Observe(1, field.StepStats{})
	tr.Observe(2, field.StepStats{})
	if tr.Len() != 2 {
		t.Errorf("expected 2 samples, got %d", tr.Len())
	}
	if s := tr.Samples(); s[0].Frame != 1 || s[1].Frame != 2 {
		t.Errorf("unexpected order %v", s)
	}
}

func TestRecorderOnRealField(t *testing.T) {
	p := field.DefaultParams()
	offsets := []float32{-1, 0, 0, 0, 1, 0}
	colors := make([]float32, 12)
	s, err := field.NewStore(offsets, colors, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(p, 256)
	frame := uint64(0)
	for ; frame < 5; frame++ {
		rec.Observe(frame, p.Step(s, field.Input{X: 0, Y: 0, HasPointer: true}, 1))
	}
	for ; frame < 200; frame++ {
		rec.Observe(frame, p.Step(s, field.Input{}, 1))
	}

	v := rec.Values()
	if v["peak_displacement"] <= 0 {
		t.Error("pointer should have displaced the field")
	}
	if v["clamp_ratio"] > 1+p.Tolerance()+1e-6 {
		t.Errorf("clamp ratio %f exceeds tolerance", v["clamp_ratio"])
	}
	if v["settle_frames"] < 0 {
		t.Error("field should have settled within 200 frames")
	}
	if rec.Trace.Len() != 200 {
		t.Errorf("expected 200 trace samples, got %d", rec.Trace.Len())
	}

	rec.Reset()
	if rec.Trace.Len() != 0 || rec.Values()["peak_displacement"] != 0 {
		t.Error("reset should clear trace and metrics")
	}
}
