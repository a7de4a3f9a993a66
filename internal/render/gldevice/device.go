// Package gldevice implements render.Device on an OpenGL 4.1 core context.
package gldevice

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/san-kum/pixeldust/internal/render"
)

var _ render.Device = (*Device)(nil)

type uniformKey struct {
	program render.Handle
	name    string
}

// Device implements render.Device on the OpenGL context current on the
// calling thread.
type Device struct {
	uniforms map[uniformKey]int32
	lost     atomic.Bool
}

// New loads the GL entry points and sets the blend state for
// alpha-blended point sprites. A context must be current.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", render.ErrContextLost, err)
	}

	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.DEPTH_TEST)

	return &Device{uniforms: make(map[uniformKey]int32)}, nil
}

// Version reports the driver's GL version string.
func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// MarkLost is called by the host when the context is about to go away.
func (d *Device) MarkLost() { d.lost.Store(true) }

func (d *Device) ContextLost() bool { return d.lost.Load() }

func (d *Device) CompileShader(stage render.Stage, source string) (render.Handle, error) {
	kind := uint32(gl.VERTEX_SHADER)
	if stage == render.FragmentStage {
		kind = gl.FRAGMENT_SHADER
	}

	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, &render.ShaderError{Stage: stage.String(), Log: strings.TrimRight(log, "\x00"), Err: render.ErrCompile}
	}
	return render.Handle(shader), nil
}

func (d *Device) LinkProgram(shaders ...render.Handle) (render.Handle, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, uint32(s))
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, &render.ShaderError{Stage: "link", Log: strings.TrimRight(log, "\x00"), Err: render.ErrLink}
	}
	return render.Handle(program), nil
}

func (d *Device) DeleteShader(h render.Handle) { gl.DeleteShader(uint32(h)) }

func (d *Device) DeleteProgram(h render.Handle) {
	for k := range d.uniforms {
		if k.program == h {
			delete(d.uniforms, k)
		}
	}
	gl.DeleteProgram(uint32(h))
}

func (d *Device) CreateBuffer() render.Handle {
	var buf uint32
	gl.GenBuffers(1, &buf)
	return render.Handle(buf)
}

func (d *Device) BufferData(buf render.Handle, data []float32, usage render.Usage) {
	glUsage := uint32(gl.STATIC_DRAW)
	if usage == render.DynamicDraw {
		glUsage = gl.DYNAMIC_DRAW
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	if len(data) == 0 {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, glUsage)
		return
	}
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), glUsage)
}

func (d *Device) BufferSubData(buf render.Handle, data []float32) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
}

func (d *Device) DeleteBuffer(h render.Handle) {
	buf := uint32(h)
	gl.DeleteBuffers(1, &buf)
}

func (d *Device) CreateVertexArray() render.Handle {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return render.Handle(vao)
}

func (d *Device) VertexAttrib(vao, buf render.Handle, location uint32, components int32) {
	gl.BindVertexArray(uint32(vao))
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.EnableVertexAttribArray(location)
	gl.VertexAttribPointer(location, components, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

func (d *Device) DeleteVertexArray(h render.Handle) {
	vao := uint32(h)
	gl.DeleteVertexArrays(1, &vao)
}

func (d *Device) UseProgram(h render.Handle) { gl.UseProgram(uint32(h)) }

func (d *Device) Uniform1f(program render.Handle, name string, v float32) {
	gl.Uniform1f(d.location(program, name), v)
}

func (d *Device) Uniform2f(program render.Handle, name string, x, y float32) {
	gl.Uniform2f(d.location(program, name), x, y)
}

func (d *Device) location(program render.Handle, name string) int32 {
	key := uniformKey{program, name}
	if loc, ok := d.uniforms[key]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
	d.uniforms[key] = loc
	return loc
}

func (d *Device) Viewport(width, height int32) { gl.Viewport(0, 0, width, height) }

func (d *Device) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Device) DrawPoints(vao render.Handle, count int32) {
	gl.BindVertexArray(uint32(vao))
	gl.DrawArrays(gl.POINTS, 0, count)
	gl.BindVertexArray(0)
}
