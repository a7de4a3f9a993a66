// Package tracker records pointer movement and the activity window that
// decides whether the field integrator needs to run.
package tracker

import (
	"math"
	"sync/atomic"
)

const DefaultWindow = 300

// Tracker is written by input callbacks and read by the frame loop. Every
// field is atomic, so writers may live on another goroutine; the reader sees
// at most one frame of stale pointer data.
type Tracker struct {
	window    int32
	remaining atomic.Int32
	x, y      atomic.Uint64
	present   atomic.Bool
}

// New returns a tracker whose activity window lasts window frames.
func New(window int) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: int32(window)}
}

// Move records a pointer position in buffer space and reopens the window.
func (t *Tracker) Move(x, y float64) {
	t.x.Store(math.Float64bits(x))
	t.y.Store(math.Float64bits(y))
	t.present.Store(true)
	t.remaining.Store(t.window)
}

// Leave forgets the pointer. The window keeps counting down so particles
// finish their return.
func (t *Tracker) Leave() {
	t.present.Store(false)
}

// Tick consumes one frame of the window.
func (t *Tracker) Tick() {
	for {
		n := t.remaining.Load()
		if n <= 0 || t.remaining.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (t *Tracker) Active() bool { return t.remaining.Load() > 0 }

func (t *Tracker) Remaining() int { return int(t.remaining.Load()) }

func (t *Tracker) Window() int { return int(t.window) }

// Pointer returns the last recorded position and whether it is still over
// the surface.
func (t *Tracker) Pointer() (x, y float64, ok bool) {
	return math.Float64frombits(t.x.Load()), math.Float64frombits(t.y.Load()), t.present.Load()
}

// Reset closes the window and forgets the pointer.
func (t *Tracker) Reset() {
	t.present.Store(false)
	t.remaining.Store(0)
}
