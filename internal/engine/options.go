package engine

import (
	"context"

	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/sampler"
)

// Loader produces the particle set for an asset path.
type Loader func(ctx context.Context, path string, opts sampler.Options) (*sampler.Result, error)

// Observer is told about every physics step the engine takes.
type Observer interface {
	Observe(frame uint64, st field.StepStats)
}

type Option func(*Engine)

// WithLoader replaces sampler.Load, mostly for tests.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		if l != nil {
			e.load = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}
