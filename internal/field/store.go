package field

import (
	"fmt"
	"math"
)

type Store struct {
	offsets    []float32
	origins    []float32
	velocities []float32
	positions  []float32
	colors     []float32
	cx, cy     float64
}

// NewStore builds a store whose particles rest at center + offset. The color
// buffer is copied once and never written again.
func NewStore(offsets, colors []float32, cx, cy float64) (*Store, error) {
	if len(offsets)%2 != 0 || len(colors) != len(offsets)*2 {
		return nil, fmt.Errorf("%w: %d offset and %d color components", ErrBufferMismatch, len(offsets), len(colors))
	}

	n := len(offsets)
	s := &Store{
		offsets:    make([]float32, n),
		origins:    make([]float32, n),
		velocities: make([]float32, n),
		positions:  make([]float32, n),
		colors:     make([]float32, len(colors)),
		cx:         cx,
		cy:         cy,
	}
	copy(s.offsets, offsets)
	copy(s.colors, colors)

	for i := 0; i < n; i += 2 {
		s.origins[i] = float32(cx + float64(offsets[i]))
		s.origins[i+1] = float32(cy + float64(offsets[i+1]))
	}
	copy(s.positions, s.origins)
	return s, nil
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.positions) / 2
}

// Positions is the live position buffer, two components per particle. The
// integrator writes it in place every step; callers must not retain a copy
// they expect to stay current.
func (s *Store) Positions() []float32 { return s.positions }

// Colors is the static color buffer, four components per particle.
func (s *Store) Colors() []float32 { return s.colors }

func (s *Store) Center() (float64, float64) { return s.cx, s.cy }

func (s *Store) Origin(i int) (float64, float64) {
	return float64(s.origins[i*2]), float64(s.origins[i*2+1])
}

func (s *Store) Position(i int) (float64, float64) {
	return float64(s.positions[i*2]), float64(s.positions[i*2+1])
}

func (s *Store) Velocity(i int) (float64, float64) {
	return float64(s.velocities[i*2]), float64(s.velocities[i*2+1])
}

// Displacement is the distance of particle i from its origin.
func (s *Store) Displacement(i int) float64 {
	dx := float64(s.positions[i*2] - s.origins[i*2])
	dy := float64(s.positions[i*2+1] - s.origins[i*2+1])
	return math.Hypot(dx, dy)
}

func (s *Store) MaxDisplacement() float64 {
	m := 0.0
	for i := 0; i < s.Len(); i++ {
		m = math.Max(m, s.Displacement(i))
	}
	return m
}

// Settled reports whether every particle is within eps of its origin and
// moving slower than eps per frame.
func (s *Store) Settled(eps float64) bool {
	for i := 0; i < s.Len(); i++ {
		vx, vy := s.Velocity(i)
		if s.Displacement(i) > eps || math.Hypot(vx, vy) > eps {
			return false
		}
	}
	return true
}

// Recenter moves every origin to newCenter + offset. Positions follow their
// origins so displacement and velocity survive a resize; colors are untouched.
func (s *Store) Recenter(cx, cy float64) {
	for i := 0; i < len(s.offsets); i += 2 {
		ox := float32(cx + float64(s.offsets[i]))
		oy := float32(cy + float64(s.offsets[i+1]))
		s.positions[i] += ox - s.origins[i]
		s.positions[i+1] += oy - s.origins[i+1]
		s.origins[i] = ox
		s.origins[i+1] = oy
	}
	s.cx, s.cy = cx, cy
}

// Reset puts every particle back at rest on its origin.
func (s *Store) Reset() {
	copy(s.positions, s.origins)
	for i := range s.velocities {
		s.velocities[i] = 0
	}
}
