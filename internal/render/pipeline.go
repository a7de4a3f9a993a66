package render

import (
	_ "embed"
	"errors"
	"fmt"
)

var (
	//go:embed shaders/points.vert
	vertexSource string
	//go:embed shaders/points.frag
	fragmentSource string
)

const (
	positionLocation = 0
	colorLocation    = 1

	DefaultPointSize = 3.0
)

type Options struct {
	PointSize  float32
	Background [4]float32
}

func DefaultOptions() Options {
	return Options{PointSize: DefaultPointSize}
}

type Pipeline struct {
	dev  Device
	opts Options

	vertex, fragment, program Handle
	vao, positions, colors    Handle

	capacity int
	ready    bool
	released bool
}

func NewPipeline(dev Device, opts Options) *Pipeline {
	if opts.PointSize <= 0 {
		opts.PointSize = DefaultPointSize
	}
	return &Pipeline{dev: dev, opts: opts}
}

func (p *Pipeline) check() error {
	switch {
	case p.released:
		return ErrReleased
	case p.dev.ContextLost():
		return ErrContextLost
	case !p.ready:
		return ErrNotReady
	}
	return nil
}

// Init compiles and links the point-sprite program and binds empty position
// and color buffers. On failure everything created so far is deleted.
func (p *Pipeline) Init() (err error) {
	if p.released {
		return ErrReleased
	}
	if p.ready {
		return nil
	}
	if p.dev.ContextLost() {
		return ErrContextLost
	}

	defer func() {
		if err != nil {
			p.deleteAll()
		}
	}()

	if p.vertex, err = p.dev.CompileShader(VertexStage, vertexSource); err != nil {
		return err
	}
	if p.fragment, err = p.dev.CompileShader(FragmentStage, fragmentSource); err != nil {
		return err
	}
	if p.program, err = p.dev.LinkProgram(p.vertex, p.fragment); err != nil {
		return err
	}

	p.vao = p.dev.CreateVertexArray()
	p.positions = p.dev.CreateBuffer()
	p.colors = p.dev.CreateBuffer()
	p.dev.BufferData(p.positions, nil, DynamicDraw)
	p.dev.BufferData(p.colors, nil, StaticDraw)
	p.dev.VertexAttrib(p.vao, p.positions, positionLocation, 2)
	p.dev.VertexAttrib(p.vao, p.colors, colorLocation, 4)

	p.ready = true
	return nil
}

// Allocate sizes both buffers for a new particle set. Colors are uploaded
// here and never again.
func (p *Pipeline) Allocate(positions, colors []float32) error {
	if err := p.check(); err != nil {
		return err
	}
	if len(colors) != len(positions)*2 {
		return fmt.Errorf("render: %d color components for %d position components", len(colors), len(positions))
	}
	p.dev.BufferData(p.positions, positions, DynamicDraw)
	p.dev.BufferData(p.colors, colors, StaticDraw)
	p.capacity = len(positions) / 2
	return nil
}

// UploadPositions rewrites the position buffer in place.
func (p *Pipeline) UploadPositions(positions []float32) error {
	if err := p.check(); err != nil {
		return err
	}
	if len(positions)/2 != p.capacity {
		return fmt.Errorf("render: upload of %d particles into buffer sized for %d", len(positions)/2, p.capacity)
	}
	p.dev.BufferSubData(p.positions, positions)
	return nil
}

// Draw clears the surface and issues one point per particle.
func (p *Pipeline) Draw(count, width, height int) error {
	if err := p.check(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	count = min(count, p.capacity)

	bg := p.opts.Background
	p.dev.Viewport(int32(width), int32(height))
	p.dev.Clear(bg[0], bg[1], bg[2], bg[3])
	if count == 0 {
		return nil
	}
	p.dev.UseProgram(p.program)
	p.dev.Uniform2f(p.program, "u_resolution", float32(width), float32(height))
	p.dev.Uniform1f(p.program, "u_pointSize", p.opts.PointSize)
	p.dev.DrawPoints(p.vao, int32(count))
	return nil
}

func (p *Pipeline) Capacity() int { return p.capacity }

func (p *Pipeline) Ready() bool { return p.ready && !p.released }

// Release deletes every GPU object the pipeline owns. It is idempotent and
// makes no device calls once the context is lost.
func (p *Pipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	p.ready = false
	if p.dev.ContextLost() {
		return
	}
	p.deleteAll()
}

func (p *Pipeline) deleteAll() {
	if p.positions != 0 {
		p.dev.DeleteBuffer(p.positions)
		p.positions = 0
	}
	if p.colors != 0 {
		p.dev.DeleteBuffer(p.colors)
		p.colors = 0
	}
	if p.vao != 0 {
		p.dev.DeleteVertexArray(p.vao)
		p.vao = 0
	}
	if p.program != 0 {
		p.dev.DeleteProgram(p.program)
		p.program = 0
	}
	if p.vertex != 0 {
		p.dev.DeleteShader(p.vertex)
		p.vertex = 0
	}
	if p.fragment != 0 {
		p.dev.DeleteShader(p.fragment)
		p.fragment = 0
	}
	p.capacity = 0
}

// IsShaderError reports whether err came from a failed compile or link.
func IsShaderError(err error) bool {
	var se *ShaderError
	return errors.As(err, &se)
}
