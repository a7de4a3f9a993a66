package field

import (
	"fmt"
	"math"
)

const (
	DefaultForceRadius        = 80.0
	DefaultForceStrength      = 1.0
	DefaultMinDistance        = 4.0
	DefaultMaxDisplacement    = 40.0
	DefaultDamping            = 0.82
	DefaultReturnForce        = 0.15
	DefaultOverflowDamping    = 0.7
	DefaultMinForceMultiplier = 0.1
	DefaultSoftBand           = 2.0
	DefaultClampBlend         = 0.5
	DefaultSettleEpsilon      = 0.05
	DefaultMaxFrameStep       = 3.0
)

// Params are the empirically tuned constants of the force model. Distances
// are in buffer pixels, rates are per reference frame (60 Hz).
type Params struct {
	ForceRadius        float64
	ForceStrength      float64
	MinDistance        float64 // floor for the pointer distance, guards the 1/d² term
	MaxDisplacement    float64
	Damping            float64
	ReturnForce        float64
	OverflowDamping    float64
	MinForceMultiplier float64
	SoftBand           float64 // width of the exponential region past MaxDisplacement
	ClampBlend         float64 // 1 = hard clamp, 0 = pure soft falloff
	SettleEpsilon      float64
	MaxFrameStep       float64
}

func DefaultParams() Params {
	return Params{
		ForceRadius:        DefaultForceRadius,
		ForceStrength:      DefaultForceStrength,
		MinDistance:        DefaultMinDistance,
		MaxDisplacement:    DefaultMaxDisplacement,
		Damping:            DefaultDamping,
		ReturnForce:        DefaultReturnForce,
		OverflowDamping:    DefaultOverflowDamping,
		MinForceMultiplier: DefaultMinForceMultiplier,
		SoftBand:           DefaultSoftBand,
		ClampBlend:         DefaultClampBlend,
		SettleEpsilon:      DefaultSettleEpsilon,
		MaxFrameStep:       DefaultMaxFrameStep,
	}
}

func (p Params) Validate() error {
	switch {
	case p.ForceRadius <= 0:
		return fmt.Errorf("%w: force radius must be positive, got %f", ErrInvalidParams, p.ForceRadius)
	case p.MinDistance <= 0 || p.MinDistance > p.ForceRadius:
		return fmt.Errorf("%w: min distance must be in (0, %f], got %f", ErrInvalidParams, p.ForceRadius, p.MinDistance)
	case p.MaxDisplacement <= 0:
		return fmt.Errorf("%w: max displacement must be positive, got %f", ErrInvalidParams, p.MaxDisplacement)
	case p.Damping <= 0 || p.Damping >= 1:
		return fmt.Errorf("%w: damping must be in (0, 1), got %f", ErrInvalidParams, p.Damping)
	case p.OverflowDamping <= 0 || p.OverflowDamping > 1:
		return fmt.Errorf("%w: overflow damping must be in (0, 1], got %f", ErrInvalidParams, p.OverflowDamping)
	case p.ReturnForce <= 0 || p.ReturnForce*p.MaxFrameStep >= 1:
		return fmt.Errorf("%w: return force %f is unstable for frame step %f", ErrInvalidParams, p.ReturnForce, p.MaxFrameStep)
	case p.MinForceMultiplier < 0 || p.MinForceMultiplier > 1:
		return fmt.Errorf("%w: min force multiplier must be in [0, 1], got %f", ErrInvalidParams, p.MinForceMultiplier)
	case p.SoftBand <= 0:
		return fmt.Errorf("%w: soft band must be positive, got %f", ErrInvalidParams, p.SoftBand)
	case p.ClampBlend < 0 || p.ClampBlend > 1:
		return fmt.Errorf("%w: clamp blend must be in [0, 1], got %f", ErrInvalidParams, p.ClampBlend)
	case p.MaxFrameStep <= 0:
		return fmt.Errorf("%w: max frame step must be positive, got %f", ErrInvalidParams, p.MaxFrameStep)
	}
	return nil
}

// Tolerance is the relative overshoot the soft clamp allows:
// displacement never exceeds MaxDisplacement * (1 + Tolerance()).
func (p Params) Tolerance() float64 {
	return p.SoftBand * (1 - p.ClampBlend) / p.MaxDisplacement
}

// softClamp maps a displacement beyond the limit back into
// [MaxDisplacement, MaxDisplacement*(1+Tolerance)].
func (p Params) softClamp(disp float64) float64 {
	excess := disp - p.MaxDisplacement
	soft := p.MaxDisplacement + p.SoftBand*(1-math.Exp(-excess/p.SoftBand))
	return p.ClampBlend*p.MaxDisplacement + (1-p.ClampBlend)*soft
}
