// Package rendertest provides an in-memory render.Device that records calls.
package rendertest

import (
	"fmt"
	"sync"

	"github.com/san-kum/pixeldust/internal/render"
)

type Call struct {
	Op   string
	Args []any
}

// Device records every call and tracks which handles are still alive.
type Device struct {
	mu sync.Mutex

	FailCompile render.Stage
	CompileErr  bool
	LinkErr     bool
	Lost        bool

	next    render.Handle
	live    map[render.Handle]string
	buffers map[render.Handle][]float32
	calls   []Call
	draws   []int32
}

func NewDevice() *Device {
	return &Device{
		live:    make(map[render.Handle]string),
		buffers: make(map[render.Handle][]float32),
	}
}

func (d *Device) alloc(kind string) render.Handle {
	d.next++
	d.live[d.next] = kind
	return d.next
}

func (d *Device) record(op string, args ...any) {
	d.calls = append(d.calls, Call{Op: op, Args: args})
}

func (d *Device) free(h render.Handle, kind string) {
	if d.live[h] != kind {
		panic(fmt.Sprintf("rendertest: delete of %s %d that is not live", kind, h))
	}
	delete(d.live, h)
	delete(d.buffers, h)
}

func (d *Device) CompileShader(stage render.Stage, source string) (render.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CompileShader", stage)
	if d.CompileErr && d.FailCompile == stage {
		return 0, &render.ShaderError{Stage: stage.String(), Log: "0:1: syntax error", Err: render.ErrCompile}
	}
	return d.alloc("shader"), nil
}

func (d *Device) LinkProgram(shaders ...render.Handle) (render.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("LinkProgram", len(shaders))
	if d.LinkErr {
		return 0, &render.ShaderError{Stage: "link", Log: "varying mismatch", Err: render.ErrLink}
	}
	return d.alloc("program"), nil
}

func (d *Device) DeleteShader(h render.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteShader", h)
	d.free(h, "shader")
}

func (d *Device) DeleteProgram(h render.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteProgram", h)
	d.free(h, "program")
}

func (d *Device) CreateBuffer() render.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateBuffer")
	return d.alloc("buffer")
}

func (d *Device) BufferData(buf render.Handle, data []float32, usage render.Usage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BufferData", buf, len(data), usage)
	d.buffers[buf] = append([]float32(nil), data...)
}

func (d *Device) BufferSubData(buf render.Handle, data []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BufferSubData", buf, len(data))
	dst := d.buffers[buf]
	if len(data) > len(dst) {
		panic(fmt.Sprintf("rendertest: sub-data of %d floats overflows buffer of %d", len(data), len(dst)))
	}
	copy(dst, data)
}

func (d *Device) DeleteBuffer(h render.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteBuffer", h)
	d.free(h, "buffer")
}

func (d *Device) CreateVertexArray() render.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateVertexArray")
	return d.alloc("vao")
}

func (d *Device) VertexAttrib(vao, buf render.Handle, location uint32, components int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("VertexAttrib", vao, buf, location, components)
}

func (d *Device) DeleteVertexArray(h render.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteVertexArray", h)
	d.free(h, "vao")
}

func (d *Device) UseProgram(h render.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UseProgram", h)
}

func (d *Device) Uniform1f(program render.Handle, name string, v float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform1f", name, v)
}

func (d *Device) Uniform2f(program render.Handle, name string, x, y float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform2f", name, x, y)
}

func (d *Device) Viewport(width, height int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Viewport", width, height)
}

func (d *Device) Clear(r, g, b, a float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Clear", r, g, b, a)
}

func (d *Device) DrawPoints(vao render.Handle, count int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawPoints", vao, count)
	d.draws = append(d.draws, count)
}

func (d *Device) ContextLost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Lost
}

func (d *Device) SetLost(lost bool) {
	d.mu.Lock()
	d.Lost = lost
	d.mu.Unlock()
}

// Live is the number of shaders, programs, buffers and vertex arrays not yet deleted.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Count returns how many times op was called.
func (d *Device) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Draws returns the point counts of every DrawPoints call.
func (d *Device) Draws() []int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int32(nil), d.draws...)
}

// Buffer returns a copy of what was last written into buf.
func (d *Device) Buffer(buf render.Handle) []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float32(nil), d.buffers[buf]...)
}

// Buffers returns the contents of every live buffer in creation order.
func (d *Device) Buffers() [][]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out [][]float32
	for h := render.Handle(1); h <= d.next; h++ {
		if d.live[h] == "buffer" {
			out = append(out, append([]float32(nil), d.buffers[h]...))
		}
	}
	return out
}

func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
	d.draws = nil
}
