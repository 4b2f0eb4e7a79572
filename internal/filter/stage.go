// Package filter implements the backdrop filter chain: blur, then saturation,
// then a tint composite.
package filter

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/frostglass/internal/effect"
)

// ErrPipelineExhaustion means a stage could not get an intermediate buffer
var ErrPipelineExhaustion = errors.New("pipeline exhaustion")

// Stage is one image transform in the chain. Apply must not modify src.
type Stage interface {
	Name() string
	Apply(src image.Image, alloc *Allocator) (*image.RGBA, error)
}

// Allocator hands out intermediate buffers within a per-buffer pixel budget
type Allocator struct {
	// MaxPixels caps a single buffer; 0 means no limit
	MaxPixels int
}

// New allocates a zeroed buffer covering r translated to the origin
func (a *Allocator) New(r image.Rectangle) (*image.RGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("empty buffer %v: %w", r, ErrPipelineExhaustion)
	}
	if a != nil && a.MaxPixels > 0 && r.Dx()*r.Dy() > a.MaxPixels {
		return nil, fmt.Errorf("buffer %dx%d exceeds budget of %d pixels: %w", r.Dx(), r.Dy(), a.MaxPixels, ErrPipelineExhaustion)
	}
	return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
}

// Blur is a gaussian blur. Radius is in output pixels, already scaled by the
// capture's downsample factor.
type Blur struct {
	Radius float64
	Engine BlurEngine
}

// Name returns "blur"
func (b Blur) Name() string { return "blur" }

// Apply blurs src into a new buffer
func (b Blur) Apply(src image.Image, alloc *Allocator) (*image.RGBA, error) {
	dst, err := alloc.New(src.Bounds())
	if err != nil {
		return nil, err
	}
	engine := b.Engine
	if engine == nil {
		engine = GiftBlur{}
	}
	if err := engine.Blur(dst, src, b.Radius); err != nil {
		return nil, fmt.Errorf("%s blur: %w", engine.Name(), err)
	}
	return dst, nil
}

// Luminance weights (Rec. 709)
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// Saturation scales color saturation by Factor. Factor 1 leaves pixels
// untouched but the stage still runs.
type Saturation struct {
	Factor float64
}

// Name returns "saturation"
func (s Saturation) Name() string { return "saturation" }

// Apply runs the saturation color matrix over src
func (s Saturation) Apply(src image.Image, alloc *Allocator) (*image.RGBA, error) {
	dst, err := alloc.New(src.Bounds())
	if err != nil {
		return nil, err
	}

	f := float32(s.Factor)
	sr := (1 - f) * lumR
	sg := (1 - f) * lumG
	sb := (1 - f) * lumB
	m := [9]float32{
		sr + f, sg, sb,
		sr, sg + f, sb,
		sr, sg, sb + f,
	}

	g := gift.New(gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		r = clamp01(m[0]*r0 + m[1]*g0 + m[2]*b0)
		g = clamp01(m[3]*r0 + m[4]*g0 + m[5]*b0)
		b = clamp01(m[6]*r0 + m[7]*g0 + m[8]*b0)
		return r, g, b, a0
	}))
	g.Draw(dst, src)
	return dst, nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TintColor returns the overlay color for a style: white at 25% for Light and
// Regular, fully transparent otherwise
func TintColor(style effect.Style) color.NRGBA {
	switch style {
	case effect.StyleLight, effect.StyleRegular:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 64}
	default:
		return color.NRGBA{}
	}
}

// Tint composites a flat translucent layer over src. Always the last stage.
type Tint struct {
	Style effect.Style
}

// Name returns "tint"
func (t Tint) Name() string { return "tint" }

// Apply copies src and draws the tint over it
func (t Tint) Apply(src image.Image, alloc *Allocator) (*image.RGBA, error) {
	dst, err := alloc.New(src.Bounds())
	if err != nil {
		return nil, err
	}
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	if c := TintColor(t.Style); c.A > 0 {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Over)
	}
	return dst, nil
}
