package pipeline

import (
	"context"

	"github.com/electwix/dsdl-catalyst/internal/dsdl"
	"github.com/electwix/dsdl-catalyst/internal/generator"
)

// Hooks are optional callbacks around the pipeline stages. A hook returning
// an error aborts the run with that error.
type Hooks struct {
	// BeforeRead receives the root namespace directories about to be read.
	BeforeRead func(ctx context.Context, roots []string) error

	// AfterRead receives every type read from the root namespaces.
	AfterRead func(ctx context.Context, types []*dsdl.CompositeType) error

	// BeforeGenerate receives the types about to be rendered.
	BeforeGenerate func(ctx context.Context, types []*dsdl.CompositeType) error

	// AfterGenerate receives the rendered files with their final paths.
	AfterGenerate func(ctx context.Context, files []generator.File) error

	// BeforeWrite receives the files about to be written.
	BeforeWrite func(ctx context.Context, files []generator.File) error

	// AfterWrite receives the summary once every file is written.
	AfterWrite func(ctx context.Context, summary Summary) error
}

// Chain runs h's hooks before other's. other's hook is skipped when h's
// fails.
func (h Hooks) Chain(other Hooks) Hooks {
	return Hooks{
		BeforeRead:     chainHook(h.BeforeRead, other.BeforeRead),
		AfterRead:      chainHook(h.AfterRead, other.AfterRead),
		BeforeGenerate: chainHook(h.BeforeGenerate, other.BeforeGenerate),
		AfterGenerate:  chainHook(h.AfterGenerate, other.AfterGenerate),
		BeforeWrite:    chainHook(h.BeforeWrite, other.BeforeWrite),
		AfterWrite:     chainHook(h.AfterWrite, other.AfterWrite),
	}
}

func chainHook[T any](first, second func(context.Context, T) error) func(context.Context, T) error {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, arg T) error {
		if err := first(ctx, arg); err != nil {
			return err
		}
		return second(ctx, arg)
	}
}

func runHook[T any](ctx context.Context, hook func(context.Context, T) error, arg T) error {
	if hook == nil {
		return nil
	}
	return hook(ctx, arg)
}
