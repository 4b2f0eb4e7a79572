package filter

import (
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/gift"
	"golang.org/x/image/draw"
)

// BlurEngine is the blur primitive behind the Blur stage
type BlurEngine interface {
	Name() string
	// Blur writes the blurred src into dst, which has src's size at the origin
	Blur(dst *image.RGBA, src image.Image, radius float64) error
}

// GiftBlur blurs with gift's separable gaussian, radius used as sigma
type GiftBlur struct{}

// Name returns "gift"
func (GiftBlur) Name() string { return "gift" }

// Blur runs gift.GaussianBlur
func (GiftBlur) Blur(dst *image.RGBA, src image.Image, radius float64) error {
	g := gift.New(gift.GaussianBlur(float32(radius)))
	g.Draw(dst, src)
	return nil
}

// BildBlur blurs with bild's gaussian kernel
type BildBlur struct{}

// Name returns "bild"
func (BildBlur) Name() string { return "bild" }

// Blur runs blur.Gaussian and copies the result into dst
func (BildBlur) Blur(dst *image.RGBA, src image.Image, radius float64) error {
	out := blur.Gaussian(src, radius)
	if out.Bounds().Size() != dst.Bounds().Size() {
		return fmt.Errorf("bild returned %v for %v input", out.Bounds(), src.Bounds())
	}
	draw.Draw(dst, dst.Bounds(), out, out.Bounds().Min, draw.Src)
	return nil
}

// EngineByName resolves a config name to a blur engine
func EngineByName(name string) (BlurEngine, error) {
	switch strings.ToLower(name) {
	case "", "gift":
		return GiftBlur{}, nil
	case "bild":
		return BildBlur{}, nil
	default:
		return nil, fmt.Errorf("unknown blur engine %q (use gift or bild)", name)
	}
}
