package field

import "errors"

var (
	// ErrBufferMismatch indicates offset and color buffers that do not describe the same particles.
	ErrBufferMismatch = errors.New("field: offset and color buffers are not index-aligned")

	// ErrInvalidParams indicates an integrator parameter outside its valid range.
	ErrInvalidParams = errors.New("field: invalid integrator parameters")
)
