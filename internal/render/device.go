package render

type Handle uint32

type Stage int

const (
	VertexStage Stage = iota
	FragmentStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return "unknown"
	}
}

type Usage int

const (
	StaticDraw Usage = iota
	DynamicDraw
)

// Device is the GPU surface the pipeline draws through. All calls happen on
// the thread that owns the context.
type Device interface {
	CompileShader(stage Stage, source string) (Handle, error)
	LinkProgram(shaders ...Handle) (Handle, error)
	DeleteShader(h Handle)
	DeleteProgram(h Handle)

	CreateBuffer() Handle
	// BufferData re-specifies the whole buffer; an empty slice leaves it zero-sized.
	BufferData(buf Handle, data []float32, usage Usage)
	// BufferSubData overwrites the buffer from offset zero without reallocating it.
	BufferSubData(buf Handle, data []float32)
	DeleteBuffer(h Handle)

	CreateVertexArray() Handle
	VertexAttrib(vao, buf Handle, location uint32, components int32)
	DeleteVertexArray(h Handle)

	UseProgram(h Handle)
	Uniform1f(program Handle, name string, v float32)
	Uniform2f(program Handle, name string, x, y float32)

	Viewport(width, height int32)
	Clear(r, g, b, a float32)
	DrawPoints(vao Handle, count int32)

	// ContextLost reports whether the context can no longer accept calls.
	ContextLost() bool
}
