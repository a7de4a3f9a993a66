// Package field holds the particle store and the per-frame integrator.
//
// A [Store] keeps index-aligned flat buffers: positions (x, y) that are
// mirrored to the GPU, colors (r, g, b, a) written once, and the origins,
// center offsets and velocities the integrator needs. [Params.Step] advances
// every particle one frame in place:
//
//	p := field.DefaultParams()
//	stats := p.Step(store, field.Input{X: px, Y: py, HasPointer: true}, 1)
//
// The integrator knows nothing about rendering. It only mutates the position
// and velocity buffers, so it can be tested and benchmarked without a GPU.
package field
