package render

import (
	"errors"
	"fmt"
)

var (
	ErrContextLost = errors.New("render: gpu context lost")
	ErrReleased    = errors.New("render: pipeline released")
	ErrNotReady    = errors.New("render: pipeline not initialized")
	ErrCompile     = errors.New("render: shader compile failed")
	ErrLink        = errors.New("render: program link failed")
)

// ShaderError carries the driver's info log for a failed compile or link.
type ShaderError struct {
	Stage string
	Log   string
	Err   error
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("%v (%s): %s", e.Err, e.Stage, e.Log)
}

func (e *ShaderError) Unwrap() error {
	return e.Err
}
