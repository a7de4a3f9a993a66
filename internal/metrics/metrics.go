// Package metrics observes integrator steps and keeps traces of how the
// field moved, for tuning the force model from the bench and script
// commands.
package metrics

import (
	"github.com/san-kum/pixeldust/internal/field"
)

// Metric folds a stream of step statistics into one number.
type Metric interface {
	Name() string
	Observe(frame uint64, st field.StepStats)
	Value() float64
	Reset()
}

type PeakDisplacement struct {
	peak float64
}

func NewPeakDisplacement() *PeakDisplacement { return &PeakDisplacement{} }

func (p *PeakDisplacement) Name() string { return "peak_displacement" }

func (p *PeakDisplacement) Observe(frame uint64, st field.StepStats) {
	p.peak = max(p.peak, st.MaxDisplacement)
}

func (p *PeakDisplacement) Value() float64 { return p.peak }

func (p *PeakDisplacement) Reset() { p.peak = 0 }

// Energy is the mean kinetic energy per observed step.
type Energy struct {
	total   float64
	samples int
}

func NewEnergy() *Energy { return &Energy{} }

func (e *Energy) Name() string { return "energy" }

func (e *Energy) Observe(frame uint64, st field.StepStats) {
	e.total += st.Kinetic
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// ClampRatio is the largest displacement seen relative to the configured
// limit. The soft clamp keeps it at or below 1 + Params.Tolerance().
type ClampRatio struct {
	limit float64
	worst float64
}

func NewClampRatio(maxDisplacement float64) *ClampRatio {
	return &ClampRatio{limit: maxDisplacement}
}

func (c *ClampRatio) Name() string { return "clamp_ratio" }

func (c *ClampRatio) Observe(frame uint64, st field.StepStats) {
	if c.limit <= 0 {
		return
	}
	c.worst = max(c.worst, st.MaxDisplacement/c.limit)
}

func (c *ClampRatio) Value() float64 { return c.worst }

func (c *ClampRatio) Reset() { c.worst = 0 }

// SettleTime is the number of frames between the first moving step and the
// step that brought the field back within eps. It stays at -1 until the
// field has moved and settled.
type SettleTime struct {
	eps     float64
	start   uint64
	moving  bool
	settled float64
}

func NewSettleTime(eps float64) *SettleTime {
	return &SettleTime{eps: eps, settled: -1}
}

func (s *SettleTime) Name() string { return "settle_frames" }

func (s *SettleTime) Observe(frame uint64, st field.StepStats) {
	switch {
	case !s.moving && !st.Settled(s.eps):
		s.moving = true
		s.start = frame
	case s.moving && st.Settled(s.eps):
		s.moving = false
		s.settled = float64(frame - s.start)
	}
}

func (s *SettleTime) Value() float64 { return s.settled }

func (s *SettleTime) Reset() {
	s.moving = false
	s.start = 0
	s.settled = -1
}

// Standard returns the metric set the CLI reports for params.
func Standard(p field.Params) []Metric {
	return []Metric{
		NewPeakDisplacement(),
		NewEnergy(),
		NewClampRatio(p.MaxDisplacement),
		NewSettleTime(p.SettleEpsilon),
	}
}
