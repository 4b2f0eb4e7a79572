package filter

import (
	"context"
	"fmt"
	"image"

	"github.com/sourcegraph/conc/panics"

	"github.com/bryanchriswhite/frostglass/internal/effect"
)

// Chain is an ordered list of stages. Each stage consumes the full output of
// the previous one.
type Chain struct {
	stages []Stage
	alloc  *Allocator
}

// Build assembles the fixed Blur -> Saturation -> Tint chain for d at the
// given capture scale. The blur radius is pre-scaled so that blur strength is
// independent of capture resolution.
func Build(d effect.Descriptor, scale float64, engine BlurEngine) Chain {
	return Chain{
		stages: []Stage{
			Blur{Radius: d.Radius() * scale, Engine: engine},
			Saturation{Factor: d.Vibrancy()},
			Tint{Style: d.Style()},
		},
	}
}

// NewChain creates a chain from explicit stages
func NewChain(stages ...Stage) Chain {
	return Chain{stages: stages}
}

// WithBudget returns a copy of the chain whose intermediate buffers are capped
// at maxPixels each (0 = unlimited)
func (c Chain) WithBudget(maxPixels int) Chain {
	c.alloc = &Allocator{MaxPixels: maxPixels}
	return c
}

// Stages returns a copy of the stage list
func (c Chain) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Run passes src through every stage in order. src is only read. Cancellation
// is checked between stages.
func (c Chain) Run(ctx context.Context, src image.Image) (*image.RGBA, error) {
	if len(c.stages) == 0 {
		return nil, fmt.Errorf("empty filter chain")
	}

	alloc := c.alloc
	if alloc == nil {
		alloc = &Allocator{}
	}

	cur := src
	var out *image.RGBA
	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		var pc panics.Catcher
		pc.Try(func() {
			out, err = stage.Apply(cur, alloc)
		})
		if r := pc.Recovered(); r != nil {
			return nil, fmt.Errorf("%s stage panicked: %w: %v", stage.Name(), ErrPipelineExhaustion, r.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage.Name(), err)
		}
		cur = out
	}
	return out, nil
}
