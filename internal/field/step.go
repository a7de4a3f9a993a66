package field

import "math"

// Input is the pointer state sampled for one frame, in buffer pixels.
type Input struct {
	X, Y       float64
	HasPointer bool
}

type StepStats struct {
	MaxDisplacement  float64
	MeanDisplacement float64
	MaxSpeed         float64
	Kinetic          float64
	Moved            bool
}

// Settled reports whether the step left every particle within eps of rest.
func (st StepStats) Settled(eps float64) bool {
	return st.MaxDisplacement <= eps && st.MaxSpeed <= eps
}

// Step advances every particle by dt reference frames. It writes positions
// and velocities in place and allocates nothing.
func (p Params) Step(s *Store, in Input, dt float64) StepStats {
	var st StepStats
	n := s.Len()
	if n == 0 || dt <= 0 {
		return st
	}
	if dt > p.MaxFrameStep {
		dt = p.MaxFrameStep
	}

	r2 := p.ForceRadius * p.ForceRadius
	minD2 := p.MinDistance * p.MinDistance
	damping := p.Damping
	overflow := p.OverflowDamping
	if dt != 1 {
		damping = math.Pow(damping, dt)
		overflow = math.Pow(overflow, dt)
	}

	pos, vel, org := s.positions, s.velocities, s.origins
	sumDisp := 0.0

	for i := 0; i < len(pos); i += 2 {
		x, y := float64(pos[i]), float64(pos[i+1])
		vx, vy := float64(vel[i]), float64(vel[i+1])
		ox, oy := float64(org[i]), float64(org[i+1])

		if in.HasPointer {
			dx, dy := in.X-x, in.Y-y
			d2 := dx*dx + dy*dy
			if d2 < r2 {
				// atan2(0, 0) is 0, so a pointer sitting exactly on a particle pushes it toward -x
				if d2 < minD2 {
					d2 = minD2
				}
				f := -r2 / d2 * p.ForceStrength
				angle := math.Atan2(dy, dx)
				disp := math.Hypot(x-ox, y-oy)
				mult := math.Max(p.MinForceMultiplier, 1-disp/(2*p.MaxDisplacement))
				sin, cos := math.Sincos(angle)
				vx += f * cos * mult * dt
				vy += f * sin * mult * dt
			}
		}

		vx *= damping
		vy *= damping

		x += (vx + (ox-x)*p.ReturnForce) * dt
		y += (vy + (oy-y)*p.ReturnForce) * dt

		ddx, ddy := x-ox, y-oy
		disp := math.Hypot(ddx, ddy)
		if disp > p.MaxDisplacement {
			scale := p.softClamp(disp) / disp
			x = ox + ddx*scale
			y = oy + ddy*scale
			disp *= scale
			vx *= overflow
			vy *= overflow
		}

		nx, ny := float32(x), float32(y)
		if nx != pos[i] || ny != pos[i+1] {
			st.Moved = true
		}
		pos[i], pos[i+1] = nx, ny
		vel[i], vel[i+1] = float32(vx), float32(vy)

		speed2 := vx*vx + vy*vy
		st.Kinetic += 0.5 * speed2
		st.MaxSpeed = math.Max(st.MaxSpeed, math.Sqrt(speed2))
		st.MaxDisplacement = math.Max(st.MaxDisplacement, disp)
		sumDisp += disp
	}

	st.MeanDisplacement = sumDisp / float64(n)
	return st
}
